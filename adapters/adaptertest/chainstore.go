package adaptertest

import (
	"context"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func RunChainStoreTest(t *testing.T, factory func() conserver.ChainStore) {
	tests := []func(t *testing.T, store conserver.ChainStore){
		testPutChain,
		testChainsSorted,
		testDefinitionsNotFound,
		testStageDefinitions,
		testDeleteChain,
	}

	for _, test := range tests {
		storeForTesting := factory()
		test(t, storeForTesting)
	}
}

func exampleChain(name string) conserver.Chain {
	return conserver.Chain{
		Name:         name,
		Links:        []string{"tag", "webhook"},
		IngressLists: []string{name + "_ingress"},
		EgressLists:  []string{name + "_egress"},
		Storages:     []string{"file"},
		Enabled:      true,
	}
}

func testPutChain(t *testing.T, store conserver.ChainStore) {
	t.Run("PutChain and Chain", func(t *testing.T) {
		ctx := context.Background()
		c := exampleChain("main")
		c.EgressChains = []string{"followup"}

		err := store.PutChain(ctx, c)
		jtest.RequireNil(t, err)

		actual, err := store.Chain(ctx, "main")
		jtest.RequireNil(t, err)
		require.Equal(t, c, *actual)

		// Changing the returned chain must not change the stored definition.
		actual.Links[0] = "changed"
		again, err := store.Chain(ctx, "main")
		jtest.RequireNil(t, err)
		require.Equal(t, "tag", again.Links[0])
	})
}

func testChainsSorted(t *testing.T, store conserver.ChainStore) {
	t.Run("Chains are listed by name", func(t *testing.T) {
		ctx := context.Background()
		for _, name := range []string{"b", "c", "a"} {
			c := exampleChain(name)
			c.Enabled = name != "c"
			err := store.PutChain(ctx, c)
			jtest.RequireNil(t, err)
		}

		chains, err := store.Chains(ctx)
		jtest.RequireNil(t, err)
		require.Len(t, chains, 3)

		var names []string
		for _, c := range chains {
			names = append(names, c.Name)
		}

		require.Equal(t, []string{"a", "b", "c"}, names)
		require.False(t, bool(chains[2].Enabled))
	})
}

func testDefinitionsNotFound(t *testing.T, store conserver.ChainStore) {
	t.Run("Missing definitions", func(t *testing.T) {
		ctx := context.Background()
		_, err := store.Chain(ctx, "missing")
		jtest.Require(t, conserver.ErrChainNotFound, err)

		_, err = store.Link(ctx, "missing")
		jtest.Require(t, conserver.ErrLinkNotFound, err)

		_, err = store.Storage(ctx, "missing")
		jtest.Require(t, conserver.ErrStorageNotFound, err)

		chains, err := store.Chains(ctx)
		jtest.RequireNil(t, err)
		require.Empty(t, chains)
	})
}

func testStageDefinitions(t *testing.T, store conserver.ChainStore) {
	t.Run("Links and storages keep their options", func(t *testing.T) {
		ctx := context.Background()
		err := store.PutLink(ctx, "tag", conserver.StageDefinition{
			Module: "tag",
			Options: conserver.StageOptions{
				"tags":    []any{"a:b"},
				"retries": 3,
				"headers": map[string]any{"x-team": "support"},
			},
		})
		jtest.RequireNil(t, err)

		err = store.PutStorage(ctx, "file", conserver.StageDefinition{
			Module:  "file",
			Options: conserver.StageOptions{"path": "/tmp/vcons"},
		})
		jtest.RequireNil(t, err)

		link, err := store.Link(ctx, "tag")
		jtest.RequireNil(t, err)
		require.Equal(t, "tag", link.Module)
		require.Equal(t, []string{"a:b"}, link.Options.Strings("tags"))
		require.Equal(t, 3, link.Options.Int("retries", 0))
		require.Equal(t, "support", link.Options.Map("headers").Str("x-team", ""))

		storage, err := store.Storage(ctx, "file")
		jtest.RequireNil(t, err)
		require.Equal(t, "file", storage.Module)
		require.Equal(t, "/tmp/vcons", storage.Options.Str("path", ""))
	})
}

func testDeleteChain(t *testing.T, store conserver.ChainStore) {
	t.Run("DeleteChain", func(t *testing.T) {
		ctx := context.Background()
		err := store.PutChain(ctx, exampleChain("main"))
		jtest.RequireNil(t, err)

		err = store.DeleteChain(ctx, "main")
		jtest.RequireNil(t, err)

		_, err = store.Chain(ctx, "main")
		jtest.Require(t, conserver.ErrChainNotFound, err)
	})
}
