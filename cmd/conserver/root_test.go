package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "load", "dlq", "enqueue"} {
		require.True(t, names[name], name)
	}

	sub := make(map[string]bool)
	for _, c := range dlqCmd.Commands() {
		sub[c.Name()] = true
	}

	require.Equal(t, map[string]bool{"length": true, "list": true, "reprocess": true}, sub)
}

func TestArgumentValidation(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "dlq length without ingress", args: []string{"dlq", "length"}},
		{name: "dlq reprocess with extra args", args: []string{"dlq", "reprocess", "a", "b"}},
		{name: "enqueue without ids", args: []string{"enqueue", "q1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rootCmd.SetArgs(tc.args)
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetErr(&bytes.Buffer{})

			err := rootCmd.Execute()
			require.Error(t, err)
			require.Contains(t, err.Error(), "arg(s)")
		})
	}
}

func TestMissingConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"load", "--config", t.TempDir() + "/missing.yml", "--env-file", t.TempDir() + "/none.env"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	err := rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}
