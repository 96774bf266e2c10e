package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting. It is loaded once at startup and
// treated as immutable afterwards.
type Config struct {
	Env      string
	HTTPAddr string

	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	Chat  ChatConfig

	AvailabilityTTL time.Duration
	SweepInterval   time.Duration
	AllowedOrigins  []string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	// MaxOpenConns bounds the pool; idle connections are half of it.
	MaxOpenConns int
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type ChatConfig struct {
	PageSize     int
	MaxPageSize  int
	RefreshRole  bool
	RateLimit    float64
	RateBurst    int
	SendBuffer   int
	MaxFrameSize int64
}

var defaults = map[string]interface{}{
	"APP_ENV":            "development",
	"HTTP_ADDR":          ":8080",
	"DB_HOST":            "127.0.0.1",
	"DB_PORT":            "3306",
	"DB_MAX_OPEN_CONNS":  50,
	"REDIS_URL":          "redis://127.0.0.1:6379/0",
	"JWT_TTL":            "24h",
	"AVAILABILITY_TTL":   "12h",
	"SWEEP_INTERVAL":     "10m",
	"ALLOWED_ORIGINS":    "",
	"CHAT_PAGE_SIZE":     50,
	"CHAT_MAX_PAGE_SIZE": 200,
	"CHAT_REFRESH_ROLE":  false,
	"WS_RATE":            10.0,
	"WS_BURST":           20,
	"WS_SEND_BUFFER":     256,
	"WS_MAX_FRAME_SIZE":  64 * 1024,
}

// Load reads an optional .env file into the process environment and then
// resolves every setting from the environment, falling back to defaults.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Env:      v.GetString("APP_ENV"),
		HTTPAddr: v.GetString("HTTP_ADDR"),
		DB: DBConfig{
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			Name:         v.GetString("DB_NAME"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{URL: v.GetString("REDIS_URL")},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Chat: ChatConfig{
			PageSize:     v.GetInt("CHAT_PAGE_SIZE"),
			MaxPageSize:  v.GetInt("CHAT_MAX_PAGE_SIZE"),
			RefreshRole:  v.GetBool("CHAT_REFRESH_ROLE"),
			RateLimit:    v.GetFloat64("WS_RATE"),
			RateBurst:    v.GetInt("WS_BURST"),
			SendBuffer:   v.GetInt("WS_SEND_BUFFER"),
			MaxFrameSize: v.GetInt64("WS_MAX_FRAME_SIZE"),
		},
		AvailabilityTTL: v.GetDuration("AVAILABILITY_TTL"),
		SweepInterval:   v.GetDuration("SWEEP_INTERVAL"),
		AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings and out-of-range values.
func (c *Config) Validate() error {
	var missing []string
	if c.DB.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.DB.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if c.AvailabilityTTL <= 0 {
		return fmt.Errorf("AVAILABILITY_TTL must be positive, got %s", c.AvailabilityTTL)
	}
	if c.Chat.PageSize <= 0 || c.Chat.MaxPageSize < c.Chat.PageSize {
		return fmt.Errorf("invalid chat page sizes: default %d, max %d", c.Chat.PageSize, c.Chat.MaxPageSize)
	}
	return nil
}

// MySQLDSN is the go-sql-driver DSN for the configured database.
func (c DBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// MigrateURL is the golang-migrate URL for the configured database.
func (c DBConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
