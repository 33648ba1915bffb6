package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromWorkspaceFile(t *testing.T) {
	root := t.TempDir()
	content := `logLevel: DEBUG
dependencyTimeout: 500ms
extensions: [".st.css", ".stylable.css"]
watch: false
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "stylable-lsp.yaml"), []byte(content), 0644))

	cfg, err := Load("", root)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 500*time.Millisecond, cfg.DependencyTimeout)
	assert.Equal(t, []string{".st.css", ".stylable.css"}, cfg.Extensions)
	assert.False(t, cfg.Watch)
	assert.Equal(t, []string{"node_modules", ".git"}, cfg.Ignore)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STYLABLE_LSP_LOG_LEVEL", "ERROR")
	t.Setenv("STYLABLE_LSP_DEPENDENCY_TIMEOUT", "3s")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
	assert.Equal(t, 3*time.Second, cfg.DependencyTimeout)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "file", cfgErr.Field)
}

func TestValidateRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "LOUD"

	assert.Error(t, cfg.Validate())
}
