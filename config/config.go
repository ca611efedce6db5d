package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Mail       MailConfig       `yaml:"mail"`
	Reminder   ReminderConfig   `yaml:"reminder"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig bounds how many reminders one scan sends concurrently.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	MaxUploadMB     int64   `yaml:"max_upload_mb"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// StorageConfig locates uploaded checksheets and completion attachments.
type StorageConfig struct {
	Root          string `yaml:"root"`
	ChecksheetDir string `yaml:"checksheet_dir"`
	CompletionDir string `yaml:"completion_dir"`
}

// MailConfig holds the SMTP transport and the fallback recipient list.
// An empty Host means mail is logged instead of sent.
type MailConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	From              string   `yaml:"from"`
	DefaultRecipients []string `yaml:"default_recipients"`
}

// ReminderConfig holds the reminder scan settings.
type ReminderConfig struct {
	Disabled        bool           `yaml:"disabled"`
	IntervalMinutes int            `yaml:"interval_minutes"`
	Interval        time.Duration  `yaml:"-"`
	Timezone        string         `yaml:"timezone"`
	Location        *time.Location `yaml:"-"`
	LeadDays        int            `yaml:"lead_days"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

var recipientSplitRe = regexp.MustCompile(`[,;\r\n]+`)

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the given path, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r, then applies environment overrides and defaults.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() error {
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Storage.Root, "UPLOAD_DIR")
	setString(&cfg.Mail.Host, "SMTP_HOST")
	setString(&cfg.Mail.Username, "SMTP_USER")
	setString(&cfg.Mail.Password, "SMTP_PASS")
	setString(&cfg.Mail.From, "SMTP_FROM")
	setString(&cfg.Reminder.Timezone, "REMINDER_TIMEZONE")

	if err := setInt(&cfg.Mail.Port, "SMTP_PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Server.Port, "PORT"); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("MAINTENANCE_NOTIFICATION_RECIPIENTS"); ok {
		cfg.Mail.DefaultRecipients = SplitList(v)
	}
	return nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 20
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "./uploads"
	}
	if cfg.Storage.ChecksheetDir == "" {
		cfg.Storage.ChecksheetDir = "checksheets"
	}
	if cfg.Storage.CompletionDir == "" {
		cfg.Storage.CompletionDir = "completion"
	}

	if cfg.Mail.Port <= 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}
	var recipients []string
	for _, r := range cfg.Mail.DefaultRecipients {
		recipients = append(recipients, SplitList(r)...)
	}
	cfg.Mail.DefaultRecipients = recipients

	if cfg.Reminder.IntervalMinutes <= 0 {
		cfg.Reminder.IntervalMinutes = 60
	}
	cfg.Reminder.Interval = time.Duration(cfg.Reminder.IntervalMinutes) * time.Minute
	if cfg.Reminder.LeadDays <= 0 {
		cfg.Reminder.LeadDays = 1
	}
	if cfg.Reminder.Timezone == "" {
		cfg.Reminder.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Reminder.Timezone)
	if err != nil {
		return fmt.Errorf("invalid reminder.timezone %q: %w", cfg.Reminder.Timezone, err)
	}
	cfg.Reminder.Location = loc

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	return nil
}

// SplitList splits a comma, semicolon or newline separated list, trimming
// entries and dropping empty ones.
func SplitList(s string) []string {
	var out []string
	for _, part := range recipientSplitRe.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
