package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bg3pak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "Globals.lsf", cfg.Entry)
	assert.Equal(t, "bg3.db", cfg.Database)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 1024, cfg.MaxDepth)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.Files)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
package: /games/bg3/Data/Gustav.pak
entry: Mods/Gustav/Story/Globals.lsf
mode: shape
format: yaml
files:
  - "*.lsf"
  - "Public/*"
workers: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "/games/bg3/Data/Gustav.pak", cfg.Package)
	assert.Equal(t, "Mods/Gustav/Story/Globals.lsf", cfg.Entry)
	assert.Equal(t, "shape", cfg.Mode)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, []string{"*.lsf", "Public/*"}, cfg.Files)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"mode":       "mode: partial",
		"format":     "format: xml",
		"log level":  "log_level: loud",
		"log format": "log_format: xml",
		"workers":    "workers: 0",
		"max depth":  "max_depth: -1",
		"pattern":    "files: ['[']",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.Matches("anything"))

	cfg.Files = []string{"*.lsf", "Public/*/Root.lsx"}
	assert.True(t, cfg.Matches("Globals.lsf"))
	assert.True(t, cfg.Matches("Public/Gustav/Root.lsx"))
	assert.False(t, cfg.Matches("Mods/Gustav/meta.lsx"))
	assert.False(t, cfg.Matches("Story/Globals.lsf"))
}
