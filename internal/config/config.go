package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type JWT struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Store struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type Backplane struct {
	Driver    string `mapstructure:"driver"`
	RedisAddr string `mapstructure:"redis_addr"`
	NatsURL   string `mapstructure:"nats_url"`
	Channel   string `mapstructure:"channel"`
}

type RateLimit struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	TasksLimit          int           `mapstructure:"tasks_limit"`
	NotificationsLimit  int           `mapstructure:"notifications_limit"`
	AllowedOrigins      []string      `mapstructure:"allowed_origins"`

	JWT       JWT       `mapstructure:"jwt"`
	Store     Store     `mapstructure:"store"`
	Backplane Backplane `mapstructure:"backplane"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")

	v.SetDefault("collaborator_timeout", "5s")
	v.SetDefault("tasks_limit", 20)
	v.SetDefault("notifications_limit", 20)
	v.SetDefault("allowed_origins", []string{})

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/aurora.db")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_database", "aurora")

	v.SetDefault("backplane.driver", "none")
	v.SetDefault("backplane.redis_addr", "localhost:6379")
	v.SetDefault("backplane.nats_url", "nats://localhost:4222")
	v.SetDefault("backplane.channel", "aurora.rooms")

	v.SetDefault("rate_limit.events", 30)
	v.SetDefault("rate_limit.interval", "1s")
}

// Load reads the YAML file at path, or config/config.<CONFIG_ENV>.yaml when
// path is empty. A .env file in the working directory is applied first and
// AURORA_* variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Str("module", "config").Msg("loaded .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)

	setDefaults(v)
	v.SetEnvPrefix("AURORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", path).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).
		Str("backplane", cfg.Backplane.Driver).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Backplane.Driver {
	case "none", "redis", "nats":
	default:
		return fmt.Errorf("unknown backplane driver %q", c.Backplane.Driver)
	}
	if c.RateLimit.Events <= 0 || c.RateLimit.Interval <= 0 {
		return fmt.Errorf("rate_limit must be positive")
	}
	return nil
}
