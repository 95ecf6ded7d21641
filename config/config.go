// Package config loads kernel tuning parameters from a TOML file,
// layered over programmatic defaults set via functional options —
// mirroring eventloop's LoopOption pattern, generalized to also support
// a config file since a kernel build is typically tuned once per target
// rather than per call site.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the kernel, its primitives, and the demo
// entrypoint need at startup.
type Config struct {
	// Scheduler
	TaskCapacity int    `toml:"task_capacity"`
	Quantum      uint32 `toml:"quantum_ticks"`
	TickRateMS   int    `toml:"tick_rate_ms"`

	// Heap
	HeapBytes int `toml:"heap_bytes"`
	BlockSize int `toml:"block_size"`

	// Feature toggles
	EnableTimerDispatcher bool `toml:"enable_timer_dispatcher"`
	LogLevel              string `toml:"log_level"`
}

// Default returns the baseline configuration used when no file is
// loaded and no options override it.
func Default() Config {
	return Config{
		TaskCapacity: 32,
		Quantum:      10,
		TickRateMS:   1,
		HeapBytes:    1 << 16,
		BlockSize:    32,
		LogLevel:     "info",
	}
}

// Option mutates a Config, applied after file-loading so callers can
// still override individual fields programmatically.
type Option func(*Config)

func WithTaskCapacity(n int) Option     { return func(c *Config) { c.TaskCapacity = n } }
func WithQuantum(ticks uint32) Option   { return func(c *Config) { c.Quantum = ticks } }
func WithTickRateMS(ms int) Option      { return func(c *Config) { c.TickRateMS = ms } }
func WithHeap(bytes, blockSize int) Option {
	return func(c *Config) { c.HeapBytes = bytes; c.BlockSize = blockSize }
}
func WithTimerDispatcher(enabled bool) Option {
	return func(c *Config) { c.EnableTimerDispatcher = enabled }
}
func WithLogLevel(level string) Option { return func(c *Config) { c.LogLevel = level } }

// Load reads path (if it exists) over the defaults, then applies opts.
// A missing file is not an error: Load(opts...) with a nonexistent path
// is a normal way to run with pure programmatic configuration.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}
