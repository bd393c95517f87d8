package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ServerPort  string `toml:"server_port"`
	StoreDriver string `toml:"store_driver"`

	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`

	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`

	JWTSecret    string   `toml:"jwt_secret"`
	JWTExpiresIn Duration `toml:"jwt_expires_in"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
	MaxBodyBytes       int64  `toml:"max_body_bytes"`
	CORSOrigin         string `toml:"cors_origin"`
}

// Duration accepts Go durations ("12h"), day counts ("7d") and bare seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		ServerPort:         "5051",
		StoreDriver:        DriverMongo,
		MongoURI:           "mongodb://localhost:27017",
		MongoDB:            "taskmanager",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "taskmanager",
		DBPassword:         "taskmanager",
		DBName:             "taskmanager",
		JWTExpiresIn:       Duration{7 * 24 * time.Hour},
		LogLevel:           "info",
		LogFormat:          "text",
		RateLimitPerMinute: 120,
		MaxBodyBytes:       1 << 20,
		CORSOrigin:         "*",
	}
}

// Load reads .env, then the optional TOML file named by CONFIG_FILE, then
// the environment. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️  No .env file found, using system environment variables")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGO_DB", c.MongoDB)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.CORSOrigin = getEnv("CORS_ORIGIN", c.CORSOrigin)

	if v, ok := os.LookupEnv("JWT_EXPIRES_IN"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRES_IN: %w", err)
		}
		c.JWTExpiresIn.Duration = d
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_PER_MINUTE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err)
		}
		c.RateLimitPerMinute = n
	}
	if v, ok := os.LookupEnv("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		c.MaxBodyBytes = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.JWTExpiresIn.Duration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// PostgresDSN builds the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// ParseDuration extends time.ParseDuration with a day suffix ("7d") and
// bare integers, read as seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
