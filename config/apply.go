package config

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/vcon-dev/conserver"
)

// Apply writes the link, storage and chain definitions into the chain store. Stages are written before the
// chains that reference them. Definitions already in the store that are not in the config are kept.
func (c *Config) Apply(ctx context.Context, store conserver.ChainStore) error {
	for _, name := range sortedKeys(c.Links) {
		err := store.PutLink(ctx, name, c.Links[name].definition())
		if err != nil {
			return errors.Wrap(err, "put link", j.MKV{"link": name})
		}
	}

	for _, name := range sortedKeys(c.Storages) {
		err := store.PutStorage(ctx, name, c.Storages[name].definition())
		if err != nil {
			return errors.Wrap(err, "put storage", j.MKV{"storage": name})
		}
	}

	for _, chain := range c.ChainDefinitions() {
		err := store.PutChain(ctx, chain)
		if err != nil {
			return errors.Wrap(err, "put chain", j.MKV{"chain": chain.Name})
		}
	}

	return nil
}
