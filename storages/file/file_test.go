package file_test

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/storages/file"
)

func TestSave(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	records := memrecordstore.New()

	v, err := conserver.NewVcon(time.Now())
	jtest.RequireNil(t, err)
	v.Subject = "first"
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	s := file.New(records)
	opts := file.Defaults.Merge(conserver.StageOptions{"path": dir, "indent": true})
	err = s.Save(ctx, v.UUID, opts)
	jtest.RequireNil(t, err)

	v.Subject = "second"
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	err = s.Save(ctx, v.UUID, opts)
	jtest.RequireNil(t, err)

	b, err := os.ReadFile(file.Path(dir, v.UUID))
	jtest.RequireNil(t, err)

	var actual conserver.Vcon
	err = json.Unmarshal(b, &actual)
	jtest.RequireNil(t, err)
	require.Equal(t, "second", actual.Subject)

	entries, err := os.ReadDir(dir)
	jtest.RequireNil(t, err)
	require.Len(t, entries, 1)
}

func TestSaveMissingRecord(t *testing.T) {
	s := file.New(memrecordstore.New())
	err := s.Save(t.Context(), "missing", conserver.StageOptions{"path": t.TempDir()})
	jtest.Require(t, conserver.ErrRecordNotFound, err)
}
