package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huegli/atticd/internal/config"
)

func TestDefaultMatchesSpecPorts(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 47800, cfg.ControlPort)
	assert.Equal(t, 47801, cfg.VideoPort)
	assert.Equal(t, 47802, cfg.AudioPort)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atticd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("control_port: 9000\nlog_level: debug\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.ControlPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 47801, cfg.VideoPort, "unset fields keep their default")
}

func TestFlagsOverrideOnlyWhenExplicitlySet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defaults := config.Default()
	flags := config.RegisterFlags(fs, defaults)

	require.NoError(t, fs.Parse([]string{"--control-port", "9100"}))

	cfg := config.Apply(defaults, fs, flags)
	assert.Equal(t, 9100, cfg.ControlPort)
	assert.Equal(t, defaults.VideoPort, cfg.VideoPort)
}
