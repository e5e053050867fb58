package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string `env:"PORT,            default=8080"`
	Env           string `env:"ENV,             default=development"`
	LogLevel      string `env:"LOG_LEVEL,       default=info"`
	SessionSecret string `env:"SESSION_SECRET"`

	// StoreDriver selects the credential store: mysql or mongo.
	StoreDriver    string `env:"STORE_DRIVER,    default=mysql"`
	// LockoutBackend and SessionBackend select redis (shared) or memory
	// (single process) state.
	LockoutBackend string `env:"LOCKOUT_BACKEND, default=redis"`
	SessionBackend string `env:"SESSION_BACKEND, default=redis"`

	Auth  AuthConfig
	MySQL MySQLConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// AuthConfig holds the lockout and session tunables, in seconds as the
// dashboard's environment has always expressed them.
type AuthConfig struct {
	MaxAttempts    int    `env:"MAX_LOGIN_ATTEMPTS, default=3"`
	LockoutSeconds int    `env:"LOCKOUT_DURATION,   default=900"`
	SessionSeconds int    `env:"SESSION_TIMEOUT,    default=3600"`
	PasswordScheme string `env:"PASSWORD_SCHEME,    default=legacy"`
	CookieName     string `env:"SESSION_COOKIE,     default=salesbi_session"`
}

func (a AuthConfig) LockoutDuration() time.Duration {
	return time.Duration(a.LockoutSeconds) * time.Second
}

func (a AuthConfig) SessionTimeout() time.Duration {
	return time.Duration(a.SessionSeconds) * time.Second
}

type MySQLConfig struct {
	Host        string `env:"DB_HOST,        default=localhost"`
	Port        int    `env:"DB_PORT,        default=3306"`
	User        string `env:"DB_USER,        default=streamlit_user"`
	Password    string `env:"DB_PASSWORD"`
	Database    string `env:"DB_NAME,        default=prostechvn"`
	PoolSize    int    `env:"DB_POOL_SIZE,   default=5"`
	PoolRecycle int    `env:"DB_POOL_RECYCLE, default=3600"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=prostechvn"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.MaxAttempts <= 0 {
		errs = append(errs, errors.New("MAX_LOGIN_ATTEMPTS must be positive"))
	}
	if c.Auth.LockoutSeconds <= 0 {
		errs = append(errs, errors.New("LOCKOUT_DURATION must be positive"))
	}
	if c.Auth.SessionSeconds <= 0 {
		errs = append(errs, errors.New("SESSION_TIMEOUT must be positive"))
	}
	if c.SessionSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("SESSION_SECRET is required outside development"))
	}
	if c.StoreDriver != "mysql" && c.StoreDriver != "mongo" {
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q: want mysql or mongo", c.StoreDriver))
	}
	for name, v := range map[string]string{"LOCKOUT_BACKEND": c.LockoutBackend, "SESSION_BACKEND": c.SessionBackend} {
		if v != "redis" && v != "memory" {
			errs = append(errs, fmt.Errorf("%s %q: want redis or memory", name, v))
		}
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file, then configuration from environment
// variables using go-envconfig. Variables already set in the environment win
// over the .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes configuration from the given lookuper and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
