// Package expire sets the time to live of a vCon in the record store.
package expire

import (
	"context"
	"time"

	"github.com/vcon-dev/conserver"
)

const Name = "expire"

var Defaults = conserver.StageOptions{
	"ttl": "24h",
}

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
	ttl := opts.Duration("ttl", 24*time.Hour)
	if ttl <= 0 {
		return vconID, nil
	}

	err := l.records.Expire(ctx, vconID, ttl)
	if err != nil {
		return "", err
	}

	return vconID, nil
}
