package protocol

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables understood by FromEnv. The key is the only secret
// and is deliberately sourced from the environment rather than flags so it
// stays out of process listings.
const (
	EnvKey       = "ORIM_KEY"
	EnvEndpoint  = "ORIM_ENDPOINT"
	EnvTimeoutMS = "ORIM_TIMEOUT_MS"
	EnvEnabled   = "ORIM_ENABLED"
)

// Config carries the channel parameters shared by the engine and the
// gateway. Zero values fall back to defaults via Normalize.
type Config struct {
	// Key is the shared PRF key, hex encoded. Sender and receiver must use
	// the same key; it is never transmitted.
	Key string `yaml:"key"`

	// Endpoint is the engine address the gateway calls, e.g.
	// "http://127.0.0.1:8577".
	Endpoint string `yaml:"endpoint"`

	// CallTimeout bounds a single gateway round trip. On expiry the gateway
	// falls back to the untouched identifier order.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Enabled gates the whole channel. When false the gateway passes every
	// identifier list through unchanged.
	Enabled bool `yaml:"enabled"`
}

// DefaultCallTimeout keeps the carrier protocol responsive even when the
// engine is wedged.
const DefaultCallTimeout = 100 * time.Millisecond

// DefaultConfig returns an enabled config with default timeouts and no key.
func DefaultConfig() Config {
	return Config{
		Endpoint:    "http://127.0.0.1:8577",
		CallTimeout: DefaultCallTimeout,
		Enabled:     true,
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg.Normalize(), nil
}

// FromEnv overlays environment variables onto c and returns the result.
func (c Config) FromEnv() Config {
	if v := os.Getenv(EnvKey); v != "" {
		c.Key = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvTimeoutMS); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.CallTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv(EnvEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	}
	return c.Normalize()
}

// Normalize fills zero values with defaults.
func (c Config) Normalize() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultConfig().Endpoint
	}
	return c
}

// KeyBytes decodes the hex key. A key that decodes to nothing is rejected
// here so the error surfaces at startup rather than on the first call.
func (c Config) KeyBytes() ([]byte, error) {
	raw, err := hex.DecodeString(c.Key)
	if err != nil {
		return nil, fmt.Errorf("decoding shared key: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("shared key is empty")
	}
	return raw, nil
}
