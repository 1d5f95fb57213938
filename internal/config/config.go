// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (nextlive.yaml in the project root)
//  3. Default values
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Gemini API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxIterations indicates the iteration cap is out of range.
	ErrInvalidMaxIterations = errors.New("invalid max iterations")

	// ErrInvalidProjectRoot indicates the project root is empty.
	ErrInvalidProjectRoot = errors.New("invalid project root")
)

// Default model identifiers.
const (
	DefaultModel      = "gemini-2.0-flash"
	DefaultImageModel = "gemini-2.0-flash-exp-image-generation"
)

// Config stores application configuration.
type Config struct {
	// Model configuration
	Model       string  `mapstructure:"model"`
	ImageModel  string  `mapstructure:"image_model"`
	Temperature float32 `mapstructure:"temperature"`
	APIKey      string  `mapstructure:"api_key"`

	// Conversation loop
	MaxIterations int `mapstructure:"max_iterations"`

	// Project layout
	ProjectRoot    string   `mapstructure:"project_root"`
	SourceDir      string   `mapstructure:"source_dir"`
	ChatsDir       string   `mapstructure:"chats_dir"`
	ImagesDir      string   `mapstructure:"images_dir"`
	SkipDirs       []string `mapstructure:"skip_dirs"`
	FileExtensions []string `mapstructure:"file_extensions"`

	// Tool execution
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

// LoadStorage loads configuration for commands that only touch local
// storage and never call the model. The API key requirement is skipped;
// file and environment overrides still apply.
func LoadStorage() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.ProjectRoot == "" {
		return nil, ErrInvalidProjectRoot
	}
	return cfg, nil
}

func load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("nextlive")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "nextlive.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("image_model", DefaultImageModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_iterations", 10)

	v.SetDefault("project_root", ".")
	v.SetDefault("source_dir", "src")
	v.SetDefault("chats_dir", "nextlive/chats")
	v.SetDefault("images_dir", "public/images")
	v.SetDefault("skip_dirs", []string{"node_modules", ".next", ".git"})
	v.SetDefault("file_extensions", []string{".ts", ".tsx", ".js", ".jsx", ".css", ".html", ".json", ".md"})

	v.SetDefault("command_timeout", 5*time.Minute)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("api_key", "GEMINI_API_KEY")
	mustBind("model", "NEXTLIVE_MODEL")
	mustBind("image_model", "NEXTLIVE_IMAGE_MODEL")
	mustBind("project_root", "NEXTLIVE_PROJECT_ROOT")
	mustBind("log_level", "NEXTLIVE_LOG_LEVEL")
}

// Validate checks the configuration ranges (fail-fast at startup).
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be between 0 and 2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxIterations < 1 || c.MaxIterations > 100 {
		return fmt.Errorf("%w: %d (must be between 1 and 100)", ErrInvalidMaxIterations, c.MaxIterations)
	}
	if c.ProjectRoot == "" {
		return ErrInvalidProjectRoot
	}
	return nil
}
