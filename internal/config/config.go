// Package config manages the engine's enumerated options (spec §6) using
// Viper for layered defaults/env/file configuration and zerolog for the
// structured logger every long-lived component is handed at construction,
// mirroring graph-clustering-algorithm/pkg/{louvain,scar}/config.go.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config wraps a Viper instance with typed getters for the engine's
// enumerated options (spec §6 table).
type Config struct {
	v *viper.Viper
}

// New builds a Config seeded with the spec's documented defaults.
func New() *Config {
	v := viper.New()
	v.SetEnvPrefix("FARMESH")
	v.AutomaticEnv()

	// Partition topology.
	v.SetDefault("topology.compute_partitions", 1) // C
	v.SetDefault("topology.total_partitions", 1)    // P
	v.SetDefault("topology.sockets", 2)              // S
	v.SetDefault("topology.page_align", 1)           // vertex-count granularity boundaries round to

	// Executor.
	v.SetDefault("executor.threads", runtime.NumCPU()) // T
	v.SetDefault("executor.basic_chunk", 64)
	v.SetDefault("executor.local_send_buffer_limit", 16)

	// Messaging.
	v.SetDefault("messaging.bulk_chunk_bytes", 1<<20)

	// Cache tier.
	v.SetDefault("cache.bitmap_enabled", true)
	v.SetDefault("cache.index_enabled", true)
	v.SetDefault("cache.edge_enabled", true)
	v.SetDefault("cache.edge_entries", 1<<16) // K
	v.SetDefault("cache.prefetch_queue_size", 1024)

	// Logging.
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile merges a YAML/TOML/JSON file into the configuration.
// Every read error, a missing file included, is returned wrapped with
// the path.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Alpha is the per-vertex chunking weight α = 8*(P-1) (spec §3, §6).
func (c *Config) Alpha() int64 {
	p := c.TotalPartitions()
	return 8 * int64(p-1)
}

func (c *Config) ComputePartitions() int { return c.v.GetInt("topology.compute_partitions") }
func (c *Config) TotalPartitions() int   { return c.v.GetInt("topology.total_partitions") }
func (c *Config) Sockets() int           { return c.v.GetInt("topology.sockets") }
func (c *Config) PageAlign() uint32      { return uint32(c.v.GetInt("topology.page_align")) }

func (c *Config) Threads() int               { return c.v.GetInt("executor.threads") }
func (c *Config) BasicChunk() int            { return c.v.GetInt("executor.basic_chunk") }
func (c *Config) LocalSendBufferLimit() int  { return c.v.GetInt("executor.local_send_buffer_limit") }

func (c *Config) BulkChunkBytes() int { return c.v.GetInt("messaging.bulk_chunk_bytes") }

func (c *Config) BitmapCacheEnabled() bool { return c.v.GetBool("cache.bitmap_enabled") }
func (c *Config) IndexCacheEnabled() bool  { return c.v.GetBool("cache.index_enabled") }
func (c *Config) EdgeCacheEnabled() bool   { return c.v.GetBool("cache.edge_enabled") }
func (c *Config) EdgeCacheEntries() int    { return c.v.GetInt("cache.edge_entries") }
func (c *Config) PrefetchQueueSize() int   { return c.v.GetInt("cache.prefetch_queue_size") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Set allows programmatic overrides, e.g. from CLI flags.
func (c *Config) Set(key string, value interface{}) { c.v.Set(key, value) }

// CreateLogger builds a zerolog.Logger honoring the configured level,
// identical in spirit to Config.CreateLogger in the teacher's scar/louvain
// config packages.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Str("service", "farmesh").Logger()
}
