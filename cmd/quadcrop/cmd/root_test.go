package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/quadcrop/internal/version"
)

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "quadcrop", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "perspective transform")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "quadcrop version "+version.Version)
}

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"crop", "serve", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "--no-such-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "config", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommandMissingConfigFile(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "config", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}
