package conserver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func TestStageOptionsMerge(t *testing.T) {
	defaults := conserver.StageOptions{
		"url":     "http://default",
		"retries": 3,
		"headers": map[string]any{"a": "1", "b": "2"},
		"tags":    []any{"x"},
	}

	merged := defaults.Merge(conserver.StageOptions{
		"url":     "http://override",
		"headers": map[string]any{"b": "3"},
	})

	require.Equal(t, conserver.StageOptions{
		"url":     "http://override",
		"retries": 3,
		"headers": map[string]any{"a": "1", "b": "3"},
		"tags":    []any{"x"},
	}, merged)

	merged.Map("headers")["a"] = "changed"
	merged["headers"].(map[string]any)["a"] = "changed"
	merged["tags"].([]any)[0] = "y"

	require.Equal(t, "1", defaults["headers"].(map[string]any)["a"])
	require.Equal(t, "x", defaults["tags"].([]any)[0])
}

func TestStageOptionsNilMerge(t *testing.T) {
	var defaults conserver.StageOptions
	merged := defaults.Merge(nil)
	require.NotNil(t, merged)
	require.Empty(t, merged)
}

func TestStageOptionsAccessors(t *testing.T) {
	opts := conserver.StageOptions{
		"str":      "value",
		"int":      5,
		"float":    2.5,
		"intstr":   "7",
		"bool":     true,
		"boolstr":  "true",
		"dur":      "1m",
		"seconds":  30,
		"list":     []any{"a", 1, "b"},
		"single":   "only",
		"strings":  []string{"c"},
		"nested":   map[string]any{"k": "v"},
		"nil":      nil,
		"notalist": 5,
	}

	require.Equal(t, "value", opts.Str("str", "x"))
	require.Equal(t, "5", opts.Str("int", "x"))
	require.Equal(t, "x", opts.Str("missing", "x"))
	require.Equal(t, "x", opts.Str("nil", "x"))

	require.Equal(t, 5, opts.Int("int", 0))
	require.Equal(t, 2, opts.Int("float", 0))
	require.Equal(t, 7, opts.Int("intstr", 0))
	require.Equal(t, 9, opts.Int("str", 9))

	require.True(t, opts.Bool("bool", false))
	require.True(t, opts.Bool("boolstr", false))
	require.True(t, opts.Bool("missing", true))

	require.Equal(t, time.Minute, opts.Duration("dur", 0))
	require.Equal(t, 30*time.Second, opts.Duration("seconds", 0))
	require.Equal(t, time.Hour, opts.Duration("str", time.Hour))

	require.Equal(t, []string{"a", "b"}, opts.Strings("list"))
	require.Equal(t, []string{"only"}, opts.Strings("single"))
	require.Equal(t, []string{"c"}, opts.Strings("strings"))
	require.Nil(t, opts.Strings("notalist"))

	require.Equal(t, conserver.StageOptions{"k": "v"}, opts.Map("nested"))
	require.Equal(t, conserver.StageOptions{}, opts.Map("str"))
}
