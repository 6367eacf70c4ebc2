package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	Admin    AdminConfig
	Sheets   SheetsConfig
}

type ServerConfig struct {
	Addr string
}

type DatabaseConfig struct {
	Path string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type LogConfig struct {
	Level string
}

// AdminConfig 首次启动时创建的管理员账户
type AdminConfig struct {
	Username string
	Password string
	Email    string
}

// SheetsConfig Google Sheets 同步配置
type SheetsConfig struct {
	Enabled        bool
	CredentialPath string
	SpreadsheetID  string
	SheetName      string
}

// Load 读取配置: 默认值 < config.yaml < LICENSE_* 环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("LICENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	defaultJWTSecret     = "change-me"
	defaultAdminPassword = "admin"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":80")
	v.SetDefault("database.path", "data/license.db")
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.ttl", 72*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", defaultAdminPassword)
	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.credential_path", "credentials.json")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Organizations")
}

// FromViper 从 viper 实例构建配置
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server:   ServerConfig{Addr: v.GetString("server.addr")},
		Database: DatabaseConfig{Path: v.GetString("database.path")},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Log: LogConfig{Level: v.GetString("log.level")},
		Admin: AdminConfig{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
			Email:    v.GetString("admin.email"),
		},
		Sheets: SheetsConfig{
			Enabled:        v.GetBool("sheets.enabled"),
			CredentialPath: v.GetString("sheets.credential_path"),
			SpreadsheetID:  v.GetString("sheets.spreadsheet_id"),
			SheetName:      v.GetString("sheets.sheet_name"),
		},
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive, got %s", c.JWT.TTL)
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		return errors.New("sheets.enabled requires sheets.spreadsheet_id")
	}
	return nil
}

// InsecureDefaults 返回仍在使用内置默认值的敏感配置项
func (c *Config) InsecureDefaults() []string {
	var keys []string
	if c.JWT.Secret == defaultJWTSecret {
		keys = append(keys, "jwt.secret")
	}
	if c.Admin.Password == defaultAdminPassword {
		keys = append(keys, "admin.password")
	}
	return keys
}
