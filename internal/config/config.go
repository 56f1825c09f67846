// Package config loads the engine's startup settings (listen port,
// default text encoding, worker/queue limits) from an optional
// ftsengine.toml, environment variables, and built-in defaults, with
// environment variables overriding the file and the file overriding the
// defaults, following the teacher's env-vars-over-file-over-defaults
// layering.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	fctx "github.com/ryogrid/ftsengine/internal/context"
)

// Defaults for spec.md §6's CLI flags and §4.5's server limits.
const (
	DefaultPort           = 10041
	DefaultEncodingLetter = "u"
	DefaultMaxIdleWorkers = 4
	DefaultQueueCapacity  = 256
	DefaultMaxConnections = 0x10000
)

// Config is the resolved set of startup settings.
type Config struct {
	Port           int
	Encoding       fctx.Encoding
	MaxIdleWorkers int
	QueueCapacity  int
	MaxConnections int
	DBDir          string
}

// Load resolves Config from, in increasing precedence: built-in
// defaults, an optional configPath (ftsengine.toml if non-empty, else
// the first of ./ftsengine.toml / $HOME/.config/ftsengine/ftsengine.toml
// found), then FTS_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("FTS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("port", DefaultPort)
	v.SetDefault("encoding", DefaultEncodingLetter)
	v.SetDefault("max_idle_workers", DefaultMaxIdleWorkers)
	v.SetDefault("queue_capacity", DefaultQueueCapacity)
	v.SetDefault("max_connections", DefaultMaxConnections)
	v.SetDefault("db_dir", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("ftsengine")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ftsengine")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read ftsengine.toml: %w", err)
			}
		}
	}

	return &Config{
		Port:           v.GetInt("port"),
		Encoding:       fctx.ParseEncoding(v.GetString("encoding")),
		MaxIdleWorkers: v.GetInt("max_idle_workers"),
		QueueCapacity:  v.GetInt("queue_capacity"),
		MaxConnections: v.GetInt("max_connections"),
		DBDir:          v.GetString("db_dir"),
	}, nil
}
