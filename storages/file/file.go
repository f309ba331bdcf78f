// Package file writes every vCon to "<path>/<uuid>.json".
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/vcon-dev/conserver"
)

const Name = "file"

var Defaults = conserver.StageOptions{
	"path":   "./vcons",
	"indent": false,
}

func Module() conserver.StorageModule {
	return conserver.StorageModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Storage, error) {
			return New(d.Records), nil
		},
	}
}

func New(records conserver.RecordStore) *Storage {
	return &Storage{records: records}
}

type Storage struct {
	records conserver.RecordStore
}

var _ conserver.Storage = (*Storage)(nil)

// Save replaces the file atomically so readers never see a partially written vCon.
func (s *Storage) Save(ctx context.Context, vconID string, opts conserver.StageOptions) error {
	v, err := s.records.Get(ctx, vconID)
	if err != nil {
		return err
	}

	var b []byte
	if opts.Bool("indent", false) {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	dir := opts.Str("path", "./vcons")
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrap(err, "create directory", j.MKV{"path": dir})
	}

	tmp, err := os.CreateTemp(dir, "."+v.UUID+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(b)
	if err != nil {
		tmp.Close()
		return err
	}

	err = tmp.Close()
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), Path(dir, v.UUID))
}

// Path returns the file a vCon is saved to.
func Path(dir, vconID string) string {
	return filepath.Join(dir, vconID+".json")
}
