package conserver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func TestRegistryCachesModules(t *testing.T) {
	r := conserver.NewRegistry()

	var constructed int
	r.RegisterLink("counting", conserver.LinkModule{
		Defaults: conserver.StageOptions{"a": 1},
		New: func(d conserver.Deps) (conserver.Link, error) {
			constructed++
			return conserver.LinkFunc(func(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
				return vconID, nil
			}), nil
		},
	})

	for range 3 {
		l, defaults, err := r.ResolveLink("counting", conserver.Deps{})
		jtest.RequireNil(t, err)
		require.NotNil(t, l)
		require.Equal(t, conserver.StageOptions{"a": 1}, defaults)
	}

	require.Equal(t, 1, constructed)
}

func TestRegistryResolutionErrors(t *testing.T) {
	r := conserver.NewRegistry()
	r.RegisterLink("broken", conserver.LinkModule{
		New: func(d conserver.Deps) (conserver.Link, error) {
			return nil, errors.New("missing credentials")
		},
	})
	r.RegisterStorage("empty", conserver.StorageModule{})

	_, _, err := r.ResolveLink("unknown", conserver.Deps{})
	jtest.Require(t, conserver.ErrModuleResolution, err)

	_, _, err = r.ResolveLink("broken", conserver.Deps{})
	jtest.Require(t, conserver.ErrModuleResolution, err)

	_, _, err = r.ResolveStorage("unknown", conserver.Deps{})
	jtest.Require(t, conserver.ErrModuleResolution, err)

	_, _, err = r.ResolveStorage("empty", conserver.Deps{})
	jtest.Require(t, conserver.ErrModuleResolution, err)
}

func TestRegistryReregisterDropsCache(t *testing.T) {
	r := conserver.NewRegistry()
	first := conserver.StorageFunc(func(ctx context.Context, vconID string, opts conserver.StageOptions) error {
		return nil
	})
	second := conserver.StorageFunc(func(ctx context.Context, vconID string, opts conserver.StageOptions) error {
		return errors.New("second")
	})

	r.RegisterStorage("s", conserver.NewStorageModule(first, nil))
	s, _, err := r.ResolveStorage("s", conserver.Deps{})
	jtest.RequireNil(t, err)
	jtest.RequireNil(t, s.Save(t.Context(), "id", nil))

	r.RegisterStorage("s", conserver.NewStorageModule(second, nil))
	s, _, err = r.ResolveStorage("s", conserver.Deps{})
	jtest.RequireNil(t, err)
	require.EqualError(t, s.Save(t.Context(), "id", nil), "second")
}

func TestEffectiveOptions(t *testing.T) {
	defaults := conserver.StageOptions{"model": "small", "prompt": "summarise"}
	def := conserver.StageDefinition{Module: "analyze", Options: conserver.StageOptions{"model": "large"}}

	opts := conserver.EffectiveOptions(defaults, def)
	require.Equal(t, conserver.StageOptions{"model": "large", "prompt": "summarise"}, opts)

	opts["prompt"] = "changed"
	require.Equal(t, "summarise", defaults["prompt"])
	require.Equal(t, conserver.StageOptions{"model": "large"}, def.Options)
}
