package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the data root.
const FileName = "tally.yaml"

// EnvPrefix prefixes environment overrides, e.g. TALLY_STORAGE_DRIVER.
const EnvPrefix = "TALLY"

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Household  HouseholdConfig  `yaml:"household" mapstructure:"household"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Import     ImportConfig     `yaml:"import" mapstructure:"import"`
	Recurring  RecurringConfig  `yaml:"recurring" mapstructure:"recurring"`
	Categories CategoriesConfig `yaml:"categories" mapstructure:"categories"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Git        GitConfig        `yaml:"git" mapstructure:"git"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// HouseholdConfig identifies the household and its members.
type HouseholdConfig struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Members []string `yaml:"members,omitempty" mapstructure:"members"`
}

// StorageConfig selects where transactions and templates live.
type StorageConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "file" or "sqlite"
	Path   string `yaml:"path" mapstructure:"path"`     // sqlite database, relative to the data root
}

// ImportConfig controls statement parsing.
type ImportConfig struct {
	DateOrder string `yaml:"date_order" mapstructure:"date_order"` // "day-first" or "month-first"
	UserTag   string `yaml:"user_tag" mapstructure:"user_tag"`
}

// RecurringConfig controls the background processor.
type RecurringConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// CategoriesConfig points at an optional keyword rules file.
type CategoriesConfig struct {
	File string `yaml:"file,omitempty" mapstructure:"file"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit" mapstructure:"auto_commit"`
	AuthorName  string `yaml:"author_name" mapstructure:"author_name"`
	AuthorEmail string `yaml:"author_email" mapstructure:"author_email"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Load reads a tally.yaml file from disk. Every key can be overridden by an
// environment variable with the TALLY_ prefix, dots replaced by underscores.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default(""))

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(""), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new household.
func Default(householdName string) *Config {
	return &Config{
		Household: HouseholdConfig{
			Name: householdName,
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "tally.db",
		},
		Import: ImportConfig{
			DateOrder: "day-first",
		},
		Recurring: RecurringConfig{
			Interval: time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "tally@localhost",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q (want %s or %s)", c.Storage.Driver, DriverFile, DriverSQLite)
	}
	if c.Recurring.Interval <= 0 {
		return fmt.Errorf("recurring interval must be positive, got %s", c.Recurring.Interval)
	}
	return nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits the key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("household.name", d.Household.Name)
	v.SetDefault("household.members", d.Household.Members)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("import.date_order", d.Import.DateOrder)
	v.SetDefault("import.user_tag", d.Import.UserTag)
	v.SetDefault("recurring.interval", d.Recurring.Interval)
	v.SetDefault("categories.file", d.Categories.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("git.auto_commit", d.Git.AutoCommit)
	v.SetDefault("git.author_name", d.Git.AuthorName)
	v.SetDefault("git.author_email", d.Git.AuthorEmail)
	v.SetDefault("server.addr", d.Server.Addr)
}
