package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"terangahub.app/push/internal/vapid"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	VAPID    VAPIDConfig    `mapstructure:"vapid"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

type RedisConfig struct {
	// Addr empty disables event de-duplication.
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 tokens issued by the auth provider.
	JWTSecret string `mapstructure:"jwt_secret"`
	// ServiceRole is the role claim that may invoke the dispatcher.
	ServiceRole string `mapstructure:"service_role"`
	// UserRole is the role claim of signed-in end users.
	UserRole string `mapstructure:"user_role"`
}

type VAPIDConfig struct {
	PublicKey   string        `mapstructure:"public_key"`
	PrivateKey  string        `mapstructure:"private_key"`
	Subscriber  string        `mapstructure:"subscriber"`
	TTL         time.Duration `mapstructure:"ttl"`
	Urgency     string        `mapstructure:"urgency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PruneOnGone bool          `mapstructure:"prune_on_gone"`
}

// Load reads configuration from a .env file, environment variables and config files.
// Environment variables override file values. Prefix: PUSH_
func Load() (*Config, error) {
	_ = godotenv.Load() // Not required

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "terangahub")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "push.db")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "terangahub-push")
	v.SetDefault("kafka.topics", []string{"social-events", "push-commands"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dedupe_ttl", 24*time.Hour)
	v.SetDefault("auth.service_role", "service_role")
	v.SetDefault("auth.user_role", "authenticated")
	v.SetDefault("vapid.subscriber", "mailto:admin@terangahub.app")
	v.SetDefault("vapid.ttl", 24*time.Hour)
	v.SetDefault("vapid.urgency", "normal")
	v.SetDefault("vapid.timeout", 10*time.Second)
	v.SetDefault("vapid.prune_on_gone", true)

	v.SetEnvPrefix("PUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("vapid.public_key", "VAPID_PUBLIC_KEY")
	v.BindEnv("vapid.private_key", "VAPID_PRIVATE_KEY")
	v.BindEnv("vapid.subscriber", "VAPID_SUBJECT")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// KAFKA_BROKERS arrives as one comma-separated string.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	return &cfg, nil
}

// Validate fails fast on settings the server cannot run without.
// The private key and JWT secret are server-side secrets and are never sent to clients.
func (c *Config) Validate() error {
	var errs []error
	if _, err := vapid.ParsePublicKey(c.VAPID.PublicKey); err != nil {
		errs = append(errs, fmt.Errorf("vapid.public_key: %w", err))
	}
	if c.VAPID.PrivateKey == "" {
		errs = append(errs, errors.New("vapid.private_key is required"))
	}
	if c.VAPID.Subscriber == "" {
		errs = append(errs, errors.New("vapid.subscriber is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.ServiceRole == "" || c.Auth.ServiceRole == c.Auth.UserRole {
		errs = append(errs, errors.New("auth.service_role must be set and differ from auth.user_role"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want postgres or sqlite", c.Database.Driver))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=" + d.SSLMode
}
