package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config captures the relay runtime parameters.
type Config struct {
	ListenAddress string        `mapstructure:"listen_address"`
	LogLevel      string        `mapstructure:"log_level"`
	Auth          AuthConfig    `mapstructure:"auth"`
	Storage       StorageConfig `mapstructure:"storage"`
}

// AuthConfig describes where the token-signing secret comes from. The secret
// itself never lives in a config file.
type AuthConfig struct {
	SecretEnv string `mapstructure:"secret_env"`
}

// StorageConfig selects and parameterizes the message store backend.
type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // sqlite, postgres or mongo
	DSN     string      `mapstructure:"dsn"`
	Mongo   MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

const (
	defaultListenAddress = "0.0.0.0:8080"
	defaultLogLevel      = "info"
	defaultSecretEnv     = "ZOQ_JWT_SECRET"
	defaultBackend       = "sqlite"
	defaultDSN           = "relay.db"
	defaultMongoDatabase = "zoq"
)

// Load reads configuration from the provided file path (if any) and the
// environment. Environment variables are prefixed with ZOQ_ and override
// file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ZOQ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("listen_address", defaultListenAddress)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("auth.secret_env", defaultSecretEnv)
	v.SetDefault("storage.backend", defaultBackend)
	v.SetDefault("storage.dsn", defaultDSN)
	v.SetDefault("storage.mongo.uri", "")
	v.SetDefault("storage.mongo.database", defaultMongoDatabase)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.Storage.Backend {
	case "sqlite", "postgres", "mongo":
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

// Secret fetches the token-signing secret from the configured environment
// variable.
func (c Config) Secret() ([]byte, error) {
	env := c.Auth.SecretEnv
	if env == "" {
		env = defaultSecretEnv
	}
	val := strings.TrimSpace(getenv(env))
	if val == "" {
		return nil, fmt.Errorf("auth secret env %s is empty", env)
	}
	return []byte(val), nil
}

// split out for testing.
var getenv = os.Getenv
