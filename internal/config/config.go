package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverMongoDB = "mongodb"
	DriverMemory  = "memory"
	DriverRedis   = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Env     string
	Server  ServerConfig
	MongoDB MongoDBConfig
	Store   StoreConfig
	Session SessionConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Display DisplayConfig
	Log     LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	AllowedHosts    []string
	ShutdownTimeout time.Duration
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// StoreConfig selects the live collection backend
type StoreConfig struct {
	Driver       string
	WriteTimeout time.Duration
}

// SessionConfig selects where session state is kept
type SessionConfig struct {
	Driver        string
	SweepInterval time.Duration
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	URI string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// DisplayConfig controls how dates are presented
type DisplayConfig struct {
	YearOffset int
	Timezone   string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// IsDev reports whether the service runs in a development environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// Location resolves Display.Timezone; "Local" or empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Display.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Validate checks the values the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("mongodb.uri is required for the mongodb store driver"))
		}
		if c.MongoDB.Database == "" {
			errs = append(errs, errors.New("mongodb.database is required for the mongodb store driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Session.Driver {
	case DriverRedis:
		if c.Redis.URI == "" {
			errs = append(errs, errors.New("redis.uri is required for the redis session driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown session driver %q", c.Session.Driver))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, errors.New("jwt.expiresIn must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Load loads configuration from a .env file, environment variables and config files
func Load(paths ...string) (*Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	if extra := GetEnv("CONFIG_PATH", ""); extra != "" {
		paths = append([]string{extra}, paths...)
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Server.AllowedHosts = GetEnvAsSlice("SERVER_ALLOWEDHOSTS", ",", cfg.Server.AllowedHosts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Env", "production")
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Server.ShutdownTimeout", 5*time.Second)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "bmd")
	v.SetDefault("MongoDB.Collection", "members")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("Store.Driver", DriverMongoDB)
	v.SetDefault("Store.WriteTimeout", 10*time.Second)
	v.SetDefault("Session.Driver", DriverMemory)
	v.SetDefault("Session.SweepInterval", time.Minute)
	v.SetDefault("Redis.URI", "redis://localhost:6379/0")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Display.YearOffset", 100)
	v.SetDefault("Display.Timezone", "Local")
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Format", "json")
}
