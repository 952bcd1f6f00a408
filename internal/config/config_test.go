package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flvmeta"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 2*time.Second, cfg.QuietPeriod())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[update]
reset_timestamps = true
policy = "fix"
creator = "studio"
fields = ["title=Demo", "rating=5"]

[watch]
quiet_ms = 500

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Update.ResetTimestamps)
	assert.Equal(t, 500*time.Millisecond, cfg.QuietPeriod())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, flvmeta.PolicyFix, opts.Policy)
	assert.Equal(t, "studio", opts.Creator)
	assert.Equal(t, []flvmeta.Field{
		{Name: "title", Value: amf.String("Demo")},
		{Name: "rating", Value: amf.Number(5)},
	}, opts.Fields)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yml", `
update:
  all_keyframes: true
  preserve: true
  policy: ignore
log:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.True(t, opts.AllKeyframes)
	assert.True(t, opts.PreserveMetadata)
	assert.Equal(t, flvmeta.PolicyIgnore, opts.Policy)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadDetectsFormatWithoutExtension(t *testing.T) {
	cfg, err := Load(writeFile(t, "flvmetarc", "[update]\nno_last_second = true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Update.NoLastSecond)

	cfg, err = Load(writeFile(t, "flvmetarc", "update:\n  no_last_second: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Update.NoLastSecond)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", "[update]\npolicy = \"lenient\"\nfields = [\"broken\"]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lenient")
	assert.Contains(t, err.Error(), "broken")

	_, err = Load(writeFile(t, "config.toml", "[update\n"))
	assert.ErrorContains(t, err, "decode TOML")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLVMETA_POLICY", "fix")
	t.Setenv("FLVMETA_LOG_LEVEL", "warn")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "fix", cfg.Update.Policy)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}
