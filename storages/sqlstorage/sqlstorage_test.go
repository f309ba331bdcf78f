package sqlstorage_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/storages/sqlstorage"
)

func TestSaveSQLite(t *testing.T) {
	ctx := t.Context()
	dsn := filepath.Join(t.TempDir(), "vcons.db")
	now := time.Date(2024, time.April, 19, 0, 0, 0, 0, time.UTC)
	records := memrecordstore.New()

	v, err := conserver.NewVcon(now)
	jtest.RequireNil(t, err)
	v.Subject = "first"
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	s := sqlstorage.New(records, clock_testing.NewFakeClock(now))
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	opts := sqlstorage.Defaults.Merge(conserver.StageOptions{"dsn": dsn, "table": "archive"})
	err = s.Save(ctx, v.UUID, opts)
	jtest.RequireNil(t, err)

	v.Subject = "second"
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	err = s.Save(ctx, v.UUID, opts)
	jtest.RequireNil(t, err)

	db, err := sqlstorage.Open(sqlstorage.DriverSQLite, dsn)
	jtest.RequireNil(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archive").Scan(&count)
	jtest.RequireNil(t, err)
	require.Equal(t, 1, count)

	var (
		subject string
		data    string
	)
	err = db.QueryRowContext(ctx, "SELECT subject, data FROM archive WHERE uuid = ?", v.UUID).Scan(&subject, &data)
	jtest.RequireNil(t, err)
	require.Equal(t, "second", subject)

	var stored conserver.Vcon
	err = json.Unmarshal([]byte(data), &stored)
	jtest.RequireNil(t, err)
	require.Equal(t, v.UUID, stored.UUID)
}

func TestSaveRejectsBadConfig(t *testing.T) {
	ctx := t.Context()
	s := sqlstorage.New(memrecordstore.New(), clock_testing.NewFakeClock(time.Now()))

	err := s.Save(ctx, "id", conserver.StageOptions{"table": "vcons; DROP TABLE x"})
	jtest.Require(t, sqlstorage.ErrInvalidTable, err)

	err = s.Save(ctx, "id", conserver.StageOptions{"driver": "postgres", "table": "vcons"})
	jtest.Require(t, sqlstorage.ErrUnknownDriver, err)
}

func TestOpenMySQLRejectsBadDSN(t *testing.T) {
	_, err := sqlstorage.Open(sqlstorage.DriverMySQL, "not a dsn")
	require.Error(t, err)
}
