// Package config loads runtime settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "TASKDESK_CONFIG"

// Config holds every runtime setting.
type Config struct {
	Port        string `mapstructure:"port"`
	CORSOrigins string `mapstructure:"cors_allowed_origins"`

	DBPath  string `mapstructure:"db_path"`
	DBDebug bool   `mapstructure:"db_debug"`

	JWTSecret  string        `mapstructure:"jwt_secret"`
	JWTIssuer  string        `mapstructure:"jwt_issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`

	AdminName     string `mapstructure:"admin_name"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`

	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	UnseenCacheTTL time.Duration `mapstructure:"unseen_cache_ttl"`

	FinishNotifyDelay time.Duration `mapstructure:"finish_notify_delay"`

	WSSendBuffer        int     `mapstructure:"ws_send_buffer"`
	WSMessagesPerSecond float64 `mapstructure:"ws_messages_per_second"`
	WSBurst             int     `mapstructure:"ws_burst"`
}

var defaults = map[string]any{
	"port":                   "3000",
	"cors_allowed_origins":   "http://localhost:3000,http://localhost:5173",
	"db_path":                "taskdesk.db",
	"db_debug":               false,
	"jwt_secret":             "change-me-in-production",
	"jwt_issuer":             "taskdesk",
	"token_ttl":              24 * time.Hour,
	"bcrypt_cost":            12,
	"admin_name":             "Administrator",
	"admin_email":            "",
	"admin_password":         "",
	"redis_addr":             "",
	"redis_password":         "",
	"unseen_cache_ttl":       5 * time.Minute,
	"finish_notify_delay":    3 * time.Second,
	"ws_send_buffer":         64,
	"ws_messages_per_second": 10.0,
	"ws_burst":               20,
}

// Load reads the file named by TASKDESK_CONFIG, if any, then the environment.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile reads path (skipped when empty) and the environment.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, errors.New("bcrypt_cost must be between 4 and 31"))
	}
	if c.FinishNotifyDelay < 0 {
		errs = append(errs, errors.New("finish_notify_delay must not be negative"))
	}
	if c.AdminEmail != "" && c.AdminPassword == "" {
		errs = append(errs, errors.New("admin_password is required when admin_email is set"))
	}
	return errors.Join(errs...)
}
