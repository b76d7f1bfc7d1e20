package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_HasServeAndVersionSubcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "version")
}

func TestVersionCommand_PrintsVersionAndCommit(t *testing.T) {
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "gateway")
	assert.Contains(t, buf.String(), version)
	assert.Contains(t, buf.String(), commit)
}

func TestServeCommand_FailsFastWithoutDownstreamConfig(t *testing.T) {
	t.Setenv("DB_ENDPOINT", "")
	t.Setenv("PGREST_ENDPOINT", "")

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}
