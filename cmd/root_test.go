// File: cmd/root_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-wd/pkg/webdriver"
)

func TestRootCommand_Version(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"status", "open", "keys"})
}

func TestRootCommand_InvalidPortFlag(t *testing.T) {
	_, err := executeCommand(t, "--port", "70000", "keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be between 1 and 65535, got 70000")
}

func TestRootCommand_MissingExplicitConfigFile(t *testing.T) {
	_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestRootCommand_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  using: \"\"\n"), 0o600))

	_, err := executeCommand(t, "--config", path, "keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults.using is required")
}

func TestKeysCommand(t *testing.T) {
	out, err := executeCommand(t, "keys")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(webdriver.KeyTokens()))
	assert.Contains(t, out, "@Enter      U+E007\n")
	assert.Contains(t, out, "@F10        U+E03A\n")
}

func TestConfigFromContext_Missing(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.EqualError(t, err, "configuration not loaded")
}
