package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rflorenc/rainmaker-workbench/internal/models"
)

// Environment variables holding the account credentials.
const (
	EnvUsername = "RAINMAKER_USERNAME"
	EnvPassword = "RAINMAKER_PASSWORD"
)

// Defaults applied after flags and the config file.
const (
	DefaultListen         = ":8080"
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "auto"
	DefaultEnvFile        = ".env"
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds all configuration (CLI flags + config file). Credentials are
// deliberately absent: they only ever come from the environment.
type Config struct {
	Listen         string        `yaml:"listen"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	EnvFile        string        `yaml:"env_file"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load overlays the YAML file at path (if any) onto the values set by flags,
// then applies defaults for anything still unset. Flag values take
// precedence over file values.
func Load(path string, flags Config) (*Config, error) {
	c := flags
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}

	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.EnvFile == "" {
		c.EnvFile = DefaultEnvFile
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return &c, nil
}

// loadFile reads a YAML config file. Values from the file are only applied
// if the corresponding flag was not set.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if c.Listen == "" {
		c.Listen = file.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = file.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = file.LogFormat
	}
	if c.EnvFile == "" {
		c.EnvFile = file.EnvFile
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = file.RequestTimeout
	}
	return nil
}

// LoadEnv loads a dotenv file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// CredentialsFromEnv reads the account credentials from the environment.
func CredentialsFromEnv() models.Credentials {
	return models.Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
}
