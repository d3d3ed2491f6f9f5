// Package server parses server command flags and starts the counter
// service runtime.
package server

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/louisbranch/moecount/internal/counter"
	entrypoint "github.com/louisbranch/moecount/internal/platform/cmd"
	"github.com/louisbranch/moecount/internal/server"
	"github.com/louisbranch/moecount/internal/storage"
	"github.com/louisbranch/moecount/internal/storage/factory"
	"github.com/louisbranch/moecount/internal/theme"
)

// Config holds server command configuration.
type Config struct {
	Addr          string        `env:"MOECOUNT_ADDR" envDefault:":8080"`
	Backend       string        `env:"MOECOUNT_STORE" envDefault:"sqlite"`
	SQLitePath    string        `env:"MOECOUNT_SQLITE_PATH" envDefault:"moecount.db"`
	BoltPath      string        `env:"MOECOUNT_BOLT_PATH" envDefault:"moecount.bolt"`
	RedisAddr     string        `env:"MOECOUNT_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"MOECOUNT_REDIS_PASSWORD"`
	RedisDB       int           `env:"MOECOUNT_REDIS_DB" envDefault:"0"`
	FlushInterval time.Duration `env:"MOECOUNT_FLUSH_INTERVAL" envDefault:"10s"`
	ThemeRoot     string        `env:"MOECOUNT_THEME_ROOT" envDefault:"assets/theme"`
	DefaultTheme  string        `env:"MOECOUNT_DEFAULT_THEME" envDefault:"moebooru"`
	SnapshotPath  string        `env:"MOECOUNT_THEME_SNAPSHOT"`
}

// StorageConfig derives the store factory input.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:       c.Backend,
		SQLitePath:    c.SQLitePath,
		BoltPath:      c.BoltPath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	fs.StringVar(&cfg.Backend, "store", cfg.Backend, "The store backend (sqlite, bolt, redis)")
	fs.StringVar(&cfg.ThemeRoot, "themes", cfg.ThemeRoot, "The theme asset root directory")
	fs.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "Minimum gap between counter write-backs")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the counter HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		store, err := factory.Open(cfg.StorageConfig())
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		catalog, err := theme.Load(theme.Options{
			Root:         cfg.ThemeRoot,
			DefaultTheme: cfg.DefaultTheme,
			SnapshotPath: cfg.SnapshotPath,
		})
		if err != nil {
			return err
		}

		counters := counter.New(store, counter.WithFlushInterval(cfg.FlushInterval))
		srv, err := server.New(server.Config{
			HTTPAddr:     cfg.Addr,
			DefaultTheme: cfg.DefaultTheme,
		}, counters, catalog)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	})
}
