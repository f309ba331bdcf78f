// Package tag adds "name:value" tags to a vCon's tags analysis.
package tag

import (
	"context"
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver"
)

const Name = "tag"

// Defaults holds no tags. Tags are given as a list of "name:value" strings under "tags".
var Defaults = conserver.StageOptions{
	"tags": []any{},
}

func Module() conserver.LinkModule {
	return conserver.LinkModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Link, error) {
			return New(d.Records, d.Clock), nil
		},
	}
}

func New(records conserver.RecordStore, clock clock.Clock) *Link {
	return &Link{
		records: records,
		clock:   clock,
	}
}

type Link struct {
	records conserver.RecordStore
	clock   clock.Clock
}

var _ conserver.Link = (*Link)(nil)

// Run only writes the record when a tag is missing or has a different value so that running it again is
// a noop.
func (l *Link) Run(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
	v, err := l.records.Get(ctx, vconID)
	if err != nil {
		return "", err
	}

	existing := v.Tags()
	var changed bool
	for _, t := range opts.Strings("tags") {
		name, value, ok := strings.Cut(t, ":")
		if !ok || name == "" {
			return "", errors.New("tag must be name:value", j.MKV{"tag": t, "link": linkName})
		}

		if current, ok := existing[name]; ok && current == value {
			continue
		}

		err := v.AddTag(name, value)
		if err != nil {
			return "", err
		}

		changed = true
	}

	if !changed {
		return vconID, nil
	}

	v.UpdatedAt = l.clock.Now()
	err = l.records.Put(ctx, v)
	if err != nil {
		return "", err
	}

	return vconID, nil
}
