package protocol

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orim.yaml")
	data := "key: 6f72696d\nendpoint: http://10.0.0.2:9000\ncall_timeout: 250ms\nenabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "6f72696d", cfg.Key)
	require.Equal(t, "http://10.0.0.2:9000", cfg.Endpoint)
	require.Equal(t, 250*time.Millisecond, cfg.CallTimeout)
	require.False(t, cfg.Enabled)

	key, err := cfg.KeyBytes()
	require.NoError(t, err)
	require.Equal(t, []byte("orim"), key)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv(EnvKey, "aabbcc")
	t.Setenv(EnvTimeoutMS, "40")
	t.Setenv(EnvEnabled, "false")
	t.Setenv(EnvEndpoint, "")

	cfg := DefaultConfig().FromEnv()
	require.Equal(t, "aabbcc", cfg.Key)
	require.Equal(t, 40*time.Millisecond, cfg.CallTimeout)
	require.False(t, cfg.Enabled)
	require.Equal(t, DefaultConfig().Endpoint, cfg.Endpoint)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{}.Normalize()
	require.Equal(t, DefaultCallTimeout, cfg.CallTimeout)
	require.NotEmpty(t, cfg.Endpoint)
}

func TestKeyBytesRejectsBadKey(t *testing.T) {
	_, err := Config{Key: ""}.KeyBytes()
	require.Error(t, err)

	_, err = Config{Key: "zz"}.KeyBytes()
	require.Error(t, err)
}
