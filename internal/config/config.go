package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Progression ProgressionConfig `yaml:"progression"`
	Backup      BackupConfig      `yaml:"backup"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// ProgressionConfig tunes the progression engine.
type ProgressionConfig struct {
	HPPerMissedHabit int      `yaml:"hp_per_missed_habit"`
	DefaultMaxHP     int      `yaml:"default_max_hp"`
	CASMaxRetries    int      `yaml:"cas_max_retries"`
	CASBackoff       Duration `yaml:"cas_backoff"`
	// Timezone is the IANA zone day boundaries are computed in.
	Timezone string `yaml:"timezone"`
}

// Location resolves Timezone. Validated by Load, so it only fails on a
// Config built by hand.
func (p ProgressionConfig) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

// BackupConfig contains database backup settings. Uploads go to
// S3-compatible storage when Bucket is set; otherwise backups stay local.
type BackupConfig struct {
	Interval  Duration `yaml:"interval"`
	Directory string   `yaml:"directory"`
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	AccessKey string   `yaml:"-"` // env-only
	SecretKey string   `yaml:"-"` // env-only
	UseSSL    *bool    `yaml:"use_ssl"`
	URLExpiry Duration `yaml:"url_expiry"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// A .env file (ASCEND_ENV_FILE, default ".env") is read into the process
// environment first; variables already set win over it.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ASCEND_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := newDefaults()
	if err := loadYAMLFile(cfg, getEnv("ASCEND_CONFIG_PATH", "config/ascend.yaml")); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	useSSL := true
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/ascend.db",
		},
		Progression: ProgressionConfig{
			HPPerMissedHabit: 10,
			DefaultMaxHP:     100,
			CASMaxRetries:    3,
			CASBackoff:       Duration(10 * time.Millisecond),
			Timezone:         "UTC",
		},
		Backup: BackupConfig{
			Interval:  Duration(24 * time.Hour),
			Directory: "data/backups",
			Region:    "us-east-1",
			UseSSL:    &useSSL,
			URLExpiry: Duration(15 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadDotEnv reads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	return nil
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// envOverrides collects parse failures while applying env vars.
type envOverrides struct {
	errs []error
}

func (e *envOverrides) string(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (e *envOverrides) int(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = n
	}
}

func (e *envOverrides) duration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return
		}
		*dst = Duration(d)
	}
}

func (e *envOverrides) bool(key string, dst **bool) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
			return
		}
		*dst = &b
	}
}

// applyEnvOverrides applies ASCEND_* environment variables to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) error {
	var e envOverrides

	e.int("ASCEND_PORT", &cfg.Server.Port)
	e.duration("ASCEND_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.duration("ASCEND_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.duration("ASCEND_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	e.string("ASCEND_DB_PATH", &cfg.Database.Path)
	e.string("ASCEND_API_KEY", &cfg.Auth.APIKey)

	e.int("ASCEND_HP_PER_MISSED_HABIT", &cfg.Progression.HPPerMissedHabit)
	e.int("ASCEND_DEFAULT_MAX_HP", &cfg.Progression.DefaultMaxHP)
	e.int("ASCEND_CAS_MAX_RETRIES", &cfg.Progression.CASMaxRetries)
	e.duration("ASCEND_CAS_BACKOFF", &cfg.Progression.CASBackoff)
	e.string("ASCEND_TIMEZONE", &cfg.Progression.Timezone)

	e.duration("ASCEND_BACKUP_INTERVAL", &cfg.Backup.Interval)
	e.string("ASCEND_BACKUP_DIR", &cfg.Backup.Directory)
	e.string("ASCEND_BACKUP_BUCKET", &cfg.Backup.Bucket)
	e.string("ASCEND_S3_ENDPOINT", &cfg.Backup.Endpoint)
	e.string("ASCEND_S3_REGION", &cfg.Backup.Region)
	e.string("ASCEND_S3_ACCESS_KEY", &cfg.Backup.AccessKey)
	e.string("ASCEND_S3_SECRET_KEY", &cfg.Backup.SecretKey)
	e.bool("ASCEND_S3_USE_SSL", &cfg.Backup.UseSSL)
	e.duration("ASCEND_S3_URL_EXPIRY", &cfg.Backup.URLExpiry)

	e.string("ASCEND_LOG_LEVEL", &cfg.Log.Level)
	e.string("ASCEND_LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(e.errs...)
}

// validate checks the loaded values. In dev mode (ASCEND_DEV_MODE=true) the
// API key is not required.
func (c *Config) validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d outside 1..65535", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Progression.HPPerMissedHabit < 0 {
		errs = append(errs, errors.New("progression.hp_per_missed_habit must not be negative"))
	}
	if c.Progression.DefaultMaxHP <= 0 {
		errs = append(errs, errors.New("progression.default_max_hp must be positive"))
	}
	if c.Progression.CASMaxRetries < 0 {
		errs = append(errs, errors.New("progression.cas_max_retries must not be negative"))
	}
	if c.Progression.CASBackoff <= 0 {
		errs = append(errs, errors.New("progression.cas_backoff must be positive"))
	}
	if _, err := c.Progression.Location(); err != nil {
		errs = append(errs, fmt.Errorf("progression.timezone: %w", err))
	}
	if c.Backup.Bucket != "" && c.Backup.Endpoint == "" {
		errs = append(errs, errors.New("backup.endpoint is required when backup.bucket is set"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}

	if os.Getenv("ASCEND_DEV_MODE") != "true" && c.Auth.APIKey == "" {
		errs = append(errs, errors.New("ASCEND_API_KEY is required"))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
