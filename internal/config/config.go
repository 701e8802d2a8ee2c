package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port" env:"PORT"`
	JWTSecret        string           `json:"jwt_secret" env:"JWT_SECRET"`
	SessionTTLHours  int              `json:"session_ttl_hours"`
	ResetTTLHours    int              `json:"reset_ttl_hours"`
	CookieSecure     *bool            `json:"cookie_secure"`
	ResetLinkBase    string           `json:"reset_link_base" env:"RESET_LINK_BASE"`
	UploadDir        string           `json:"upload_dir"`
	UploadLimit      int64            `json:"upload_limit"`
	RateLimitSeconds *int             `json:"rate_limit_seconds"`
	OTPCleanupSpec   string           `json:"otp_cleanup_spec"`
	Database         DatabaseConfig   `json:"database" envPrefix:"DB_"`
	FileStore        FileStoreConfig  `json:"file_store"`
	Mail             MailConfig       `json:"mail" envPrefix:"MAIL_"`
	LogConfig        logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn" env:"DSN"`
	Host     string `json:"host" env:"HOST"`
	Port     int    `json:"port" env:"PORT"`
	User     string `json:"user" env:"USER"`
	Password string `json:"password" env:"PASSWORD"`
	DBName   string `json:"dbname" env:"NAME"`
	SSLMode  string `json:"sslmode"`
	MaxConns int    `json:"max_conns"`
}

// FileStoreConfig selects a filestore backend; Data is decoded by the
// backend factory.
type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type MailConfig struct {
	Host       string `json:"host" env:"HOST"`
	Port       int    `json:"port" env:"PORT"`
	Username   string `json:"username" env:"USERNAME"`
	Password   string `json:"password" env:"PASSWORD"`
	From       string `json:"from" env:"FROM"`
	SenderName string `json:"sender_name"`
}

const envPrefix = "WASSUP_"

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 72
	}
	if c.ResetTTLHours == 0 {
		c.ResetTTLHours = 24
	}
	if c.CookieSecure == nil {
		secure := true
		c.CookieSecure = &secure
	}
	if c.ResetLinkBase == "" {
		c.ResetLinkBase = fmt.Sprintf("http://localhost:%d/user/reset-password", c.Port)
	}
	if c.UploadDir == "" {
		c.UploadDir = os.TempDir()
	}
	if c.UploadLimit <= 0 {
		c.UploadLimit = 5 * 1024 * 1024
	}
	if c.RateLimitSeconds == nil {
		seconds := 0
		c.RateLimitSeconds = &seconds
	}
	if c.OTPCleanupSpec == "" {
		c.OTPCleanupSpec = "*/5 * * * *"
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxConns <= 0 {
			c.Database.MaxConns = 10
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be postgres or memory")
	}

	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	if c.Mail.SenderName == "" {
		c.Mail.SenderName = "Wassup Team"
	}
	return nil
}
