package soalloc

import (
	"log/slog"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.chunkSize != DefaultChunkSize {
		t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, cfg.chunkSize)
	}
	if cfg.maxObjectSize != DefaultMaxObjectSize {
		t.Errorf("expected maxObjectSize %d, got %d", DefaultMaxObjectSize, cfg.maxObjectSize)
	}
	if cfg.secureWipe || cfg.debugAssertions || cfg.logger != nil {
		t.Error("expected secureWipe, debugAssertions, logger to be zero-valued by default")
	}
}

func TestConfigurationOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want config
	}{
		{
			name: "chunk size",
			opts: []Option{WithChunkSize(8192)},
			want: config{chunkSize: 8192, maxObjectSize: DefaultMaxObjectSize},
		},
		{
			name: "max object size",
			opts: []Option{WithMaxObjectSize(1024)},
			want: config{chunkSize: DefaultChunkSize, maxObjectSize: 1024},
		},
		{
			name: "secure wipe",
			opts: []Option{WithSecureWipe()},
			want: config{chunkSize: DefaultChunkSize, maxObjectSize: DefaultMaxObjectSize, secureWipe: true},
		},
		{
			name: "debug assertions",
			opts: []Option{WithDebugAssertions()},
			want: config{chunkSize: DefaultChunkSize, maxObjectSize: DefaultMaxObjectSize, debugAssertions: true},
		},
		{
			name: "non-positive chunk size ignored",
			opts: []Option{WithChunkSize(0), WithChunkSize(-1)},
			want: config{chunkSize: DefaultChunkSize, maxObjectSize: DefaultMaxObjectSize},
		},
		{
			name: "non-positive max object size ignored",
			opts: []Option{WithMaxObjectSize(-8)},
			want: config{chunkSize: DefaultChunkSize, maxObjectSize: DefaultMaxObjectSize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			for _, opt := range tt.opts {
				opt(&cfg)
			}
			if cfg.chunkSize != tt.want.chunkSize {
				t.Errorf("chunkSize = %d, want %d", cfg.chunkSize, tt.want.chunkSize)
			}
			if cfg.maxObjectSize != tt.want.maxObjectSize {
				t.Errorf("maxObjectSize = %d, want %d", cfg.maxObjectSize, tt.want.maxObjectSize)
			}
			if cfg.secureWipe != tt.want.secureWipe {
				t.Errorf("secureWipe = %v, want %v", cfg.secureWipe, tt.want.secureWipe)
			}
			if cfg.debugAssertions != tt.want.debugAssertions {
				t.Errorf("debugAssertions = %v, want %v", cfg.debugAssertions, tt.want.debugAssertions)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	cfg := defaultConfig()
	logger := slog.Default()
	WithLogger(logger)(&cfg)
	if cfg.logger != logger {
		t.Error("expected WithLogger to set the provided logger")
	}
}

func TestNewPoolManagerAppliesOptions(t *testing.T) {
	pm := NewPoolManager(WithChunkSize(1024), WithMaxObjectSize(128), WithSecureWipe())
	defer pm.Close()

	if pm.cfg.chunkSize != 1024 {
		t.Errorf("expected chunkSize 1024, got %d", pm.cfg.chunkSize)
	}
	if pm.cfg.maxObjectSize != 128 {
		t.Errorf("expected maxObjectSize 128, got %d", pm.cfg.maxObjectSize)
	}
	if !pm.cfg.secureWipe {
		t.Error("expected secureWipe to be enabled")
	}
}
