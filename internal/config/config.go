// Package config provides a reusable loader for the RPC server's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/synnergy-rpc/synnergy-rpc/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// ListenerConfig describes one bound listener, mirroring §6's "Listener
// configuration" interface: (ip, port, backlog, [tls material]).
type ListenerConfig struct {
	IP         string `mapstructure:"ip" json:"ip"`
	Port       int    `mapstructure:"port" json:"port"`
	Backlog    int    `mapstructure:"backlog" json:"backlog"`
	Protocol   string `mapstructure:"protocol" json:"protocol"` // "binary", "xmlrpc", "jsonrpc"
	TLSCert    string `mapstructure:"tls_cert" json:"tls_cert"`
	TLSKey     string `mapstructure:"tls_key" json:"tls_key"`
	VerifyPeer bool   `mapstructure:"verify_peer" json:"verify_peer"`
	CABundle   string `mapstructure:"ca_bundle" json:"ca_bundle"`
}

// PoolConfig mirrors §4.4's elasticity and timeout knobs.
type PoolConfig struct {
	MinThreads       int           `mapstructure:"min_threads" json:"min_threads"`
	MaxThreads       int           `mapstructure:"max_threads" json:"max_threads"`
	QueueCapacity    int           `mapstructure:"queue_capacity" json:"queue_capacity"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout" json:"keep_alive_timeout"`
}

// LoggingConfig selects the logging collaborator's sink and per-category
// level, matching §6's "Configuration of the logging collaborator".
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	File   string `mapstructure:"file" json:"file"`
	Format string `mapstructure:"format" json:"format"` // "text" or "json"
}

// Config represents the unified configuration for an rpcserver process. It
// mirrors the structure of the YAML files under config/.
type Config struct {
	Listeners []ListenerConfig `mapstructure:"listeners" json:"listeners"`
	Pool      PoolConfig       `mapstructure:"pool" json:"pool"`
	Logging   LoggingConfig    `mapstructure:"logging" json:"logging"`
}

// Defaults returns a Config with the same baseline values used when no
// config file section overrides them.
func Defaults() Config {
	return Config{
		Pool: PoolConfig{
			MinThreads:       2,
			MaxThreads:       32,
			QueueCapacity:    64,
			IdleTimeout:      30 * time.Second,
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     10 * time.Second,
			KeepAliveTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config = Defaults()

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // optional .env overlay; missing file is not an error

	AppConfig = Defaults()

	v := viper.New()
	v.SetConfigName("default")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		v.SetConfigName(env)
		if err := v.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	v.SetEnvPrefix("RPCSERVER")
	v.AutomaticEnv()

	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the RPCSERVER_ENV environment
// variable, falling back to the built-in defaults if no config file is
// present (useful for tests and zero-config local runs).
func LoadFromEnv() (*Config, error) {
	cfg, err := Load(utils.EnvOrDefault("RPCSERVER_ENV", ""))
	if err != nil {
		d := Defaults()
		AppConfig = d
		return &AppConfig, nil
	}
	return cfg, nil
}
