// Package jlog writes engine logs through jettison's global logger.
package jlog

import (
	"context"
	"strconv"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/vcon-dev/conserver"
)

// New returns a Logger that writes through jettison's global logger. Every line carries the component name,
// which defaults to "conserver".
func New(opts ...Option) *logger {
	l := &logger{component: "conserver"}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

type Option func(l *logger)

// WithComponent sets the component label added to every line, useful when several engines share a process.
func WithComponent(name string) Option {
	return func(l *logger) {
		l.component = name
	}
}

type logger struct {
	component string
}

func (l *logger) Debug(ctx context.Context, msg string, meta map[string]string) {
	log.Debug(ctx, msg, j.MKS(meta), j.KV("component", l.component))
}

// Error logs err with the failing stage as structured fields when err carries a StageError, so that a
// failed link can be found by chain or vCon id.
func (l *logger) Error(ctx context.Context, err error) {
	kvs := j.MKV{"component": l.component}
	if se, ok := conserver.AsStageError(err); ok {
		kvs["chain"] = se.Chain
		kvs["link"] = se.Link
		kvs["vcon_id"] = se.VconID
		kvs["config_error"] = strconv.FormatBool(se.Config)
	}

	log.Error(ctx, errors.Wrap(err, "", kvs))
}

var _ conserver.Logger = (*logger)(nil)
