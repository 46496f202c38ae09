package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cloudtile/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// WithBucket overrides the object-storage bucket for the test.
func WithBucket(bucket string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Bucket = bucket
	}
}

// WithTools points every conversion binary at the given executable. Tests
// typically pass their own test binary together with a helper-process
// environment variable.
func WithTools(binary string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ogr2ogrBin = binary
		cfg.TippecanoeBin = binary
		cfg.PMTilesBin = binary
	}
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = filepath.Join(base, "work")
	cfg.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	for _, dir := range []string{cfg.WorkDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	return &cfg
}
