// Package filter halts a chain for vCons that do not match a gjson path.
package filter

import (
	"context"
	"encoding/json"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/tidwall/gjson"

	"github.com/vcon-dev/conserver"
)

const Name = "filter"

// Defaults forward vCons that match. A match is a path that exists in the vCon JSON and, when "equals" is
// set, whose value equals it. With "forward-matches" false matching vCons are halted instead.
var Defaults = conserver.StageOptions{
	"path":            "",
	"equals":          nil,
	"forward-matches": true,
}

var ErrMissingPath = errors.New("filter path not configured", j.C("ERR_a70c5e2b9d14f836"))

func Module() conserver.LinkModule {
	return conserver.LinkModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Link, error) {
			return New(d.Records), nil
		},
	}
}

func New(records conserver.RecordStore) *Link {
	return &Link{records: records}
}

type Link struct {
	records conserver.RecordStore
}

var _ conserver.Link = (*Link)(nil)

func (l *Link) Run(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
	path := opts.Str("path", "")
	if path == "" {
		return "", errors.Wrap(ErrMissingPath, "", j.MKV{"link": linkName})
	}

	v, err := l.records.Get(ctx, vconID)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	res := gjson.GetBytes(b, path)
	matched := res.Exists()
	if matched && opts["equals"] != nil {
		matched = res.String() == opts.Str("equals", "")
	}

	if matched != opts.Bool("forward-matches", true) {
		return "", nil
	}

	return vconID, nil
}
