// Package modules registers the built in links and storages.
package modules

import (
	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/links/analyze"
	"github.com/vcon-dev/conserver/links/expire"
	"github.com/vcon-dev/conserver/links/filter"
	"github.com/vcon-dev/conserver/links/tag"
	"github.com/vcon-dev/conserver/links/webhook"
	"github.com/vcon-dev/conserver/storages/file"
	"github.com/vcon-dev/conserver/storages/kafkastorage"
	"github.com/vcon-dev/conserver/storages/sqlstorage"
)

// Register adds every built in module to the registry under its module name.
func Register(r *conserver.Registry) {
	r.RegisterLink(tag.Name, tag.Module())
	r.RegisterLink(webhook.Name, webhook.Module())
	r.RegisterLink(filter.Name, filter.Module())
	r.RegisterLink(analyze.Name, analyze.Module())
	r.RegisterLink(expire.Name, expire.Module())

	r.RegisterStorage(file.Name, file.Module())
	r.RegisterStorage(sqlstorage.Name, sqlstorage.Module())
	r.RegisterStorage(kafkastorage.Name, kafkastorage.Module())
}

// NewRegistry returns a registry holding every built in module.
func NewRegistry() *conserver.Registry {
	r := conserver.NewRegistry()
	Register(r)
	return r
}
