package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	StorageDriver     string `mapstructure:"STORAGE_DRIVER"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL   string `mapstructure:"S3_PUBLIC_BASE_URL"`

	BucketGames       string `mapstructure:"BUCKET_GAMES"`
	BucketImages      string `mapstructure:"BUCKET_IMAGES"`
	BucketScreenshots string `mapstructure:"BUCKET_SCREENSHOTS"`

	LocalStorageDir    string `mapstructure:"LOCAL_STORAGE_DIR"`
	LocalPublicBaseURL string `mapstructure:"LOCAL_PUBLIC_BASE_URL"`

	AllowedOrigins  string        `mapstructure:"ALLOWED_ORIGINS"`
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`
	BodyLimitMB     int           `mapstructure:"BODY_LIMIT_MB"`
}

var defaults = map[string]any{
	"APP_ENV":               "development",
	"LOG_LEVEL":             "",
	"HTTP_ADDR":             ":5200",
	"DATABASE_URL":          "",
	"JWT_SECRET":            "",
	"STORAGE_DRIVER":        "local",
	"S3_ENDPOINT":           "",
	"S3_REGION":             "auto",
	"S3_ACCESS_KEY_ID":      "",
	"S3_SECRET_ACCESS_KEY":  "",
	"S3_PUBLIC_BASE_URL":    "",
	"BUCKET_GAMES":          "games",
	"BUCKET_IMAGES":         "images",
	"BUCKET_SCREENSHOTS":    "screenshots",
	"LOCAL_STORAGE_DIR":     "./uploads",
	"LOCAL_PUBLIC_BASE_URL": "http://localhost:5200/files",
	"ALLOWED_ORIGINS":       "http://localhost:3000",
	"CLEANUP_INTERVAL":      "1m",
	"BODY_LIMIT_MB":         120,
}

// Load reads .env (if present) into the process environment and decodes the
// environment into a Config. Missing .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		// AutomaticEnv only resolves keys viper already knows about.
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3Endpoint == "" || c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return fmt.Errorf("STORAGE_DRIVER=s3 requires S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q (use local or s3)", c.StorageDriver)
	}
	if c.DatabaseURL == "" && !c.IsDevelopment() {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Origins returns ALLOWED_ORIGINS normalized to fiber's comma-separated form.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func (c *Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}
