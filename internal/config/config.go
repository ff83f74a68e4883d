package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Checkout CheckoutConfig `mapstructure:"checkout" yaml:"checkout"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Advanced AdvancedConfig `mapstructure:"advanced" yaml:"advanced"`
}

// APIConfig holds settings for the Fanbroj backend API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CheckoutConfig holds settings for the quick-checkout overlay.
type CheckoutConfig struct {
	// PollInterval is the delay between payment verification checks.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// MaxPolls caps the number of verification checks per session.
	MaxPolls int `mapstructure:"max_polls" yaml:"max_polls"`
	// DefaultPlan is the plan pre-selected when the overlay opens.
	DefaultPlan string `mapstructure:"default_plan" yaml:"default_plan"`
	// OpenBrowser controls whether provider checkout URLs are opened
	// in the system browser automatically.
	OpenBrowser bool `mapstructure:"open_browser" yaml:"open_browser"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds settings for the local sqlite store.
type DatabaseConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode" yaml:"wal_mode"`
}

// AdvancedConfig holds settings most users never touch.
type AdvancedConfig struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://fanbroj.net",
			Timeout: 30 * time.Second,
		},
		Checkout: CheckoutConfig{
			PollInterval: 3 * time.Second,
			MaxPolls:     30,
			DefaultPlan:  "monthly",
			OpenBrowser:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       filepath.Join(StateDir(), "fanbroj.log"),
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Database: DatabaseConfig{
			Path:           filepath.Join(StateDir(), "fanbroj.db"),
			MaxConnections: 4,
			WALMode:        true,
		},
		Advanced: AdvancedConfig{
			Debug: false,
		},
	}
}

// Load reads configuration from the given file (or the default search
// paths when empty) layered over built-in defaults and FANBROJ_*
// environment variables. The returned viper instance can be used for
// hot reload.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("checkout.poll_interval", def.Checkout.PollInterval)
	v.SetDefault("checkout.max_polls", def.Checkout.MaxPolls)
	v.SetDefault("checkout.default_plan", def.Checkout.DefaultPlan)
	v.SetDefault("checkout.open_browser", def.Checkout.OpenBrowser)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.max_size", def.Logging.MaxSize)
	v.SetDefault("logging.max_backups", def.Logging.MaxBackups)
	v.SetDefault("logging.max_age", def.Logging.MaxAge)
	v.SetDefault("logging.compress", def.Logging.Compress)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.max_connections", def.Database.MaxConnections)
	v.SetDefault("database.wal_mode", def.Database.WALMode)
	v.SetDefault("advanced.debug", def.Advanced.Debug)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FANBROJ")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, v, nil
}

// InitializeDirs creates the config and state directories.
func InitializeDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// WriteDefault writes the built-in configuration to path as YAML.
// Used by the `config init` command.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	header := "# fanbroj configuration\n# See https://github.com/codeabdala/fanbroj-cli for documentation.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigDir returns the directory where the config file lives.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "fanbroj")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fanbroj")
}

// StateDir returns the directory for logs and the local database.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "fanbroj")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "fanbroj")
}
