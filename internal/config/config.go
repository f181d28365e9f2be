package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const configFileEnvVar = "FLEET_CONFIG"

type Config interface {
	EnvConfig
	ClientConfig
	ResilienceConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetDataFolder() string
	GetLogLevel() string
}

// File is the optional TOML configuration file. Environment variables take
// precedence over anything set here.
type File struct {
	AppName    string         `toml:"app_name"`
	BaseURL    string         `toml:"base_url"`
	DataFolder string         `toml:"data_dir"`
	LogLevel   string         `toml:"log_level"`
	Client     ClientFile     `toml:"client"`
	Resilience ResilienceFile `toml:"resilience"`
}

type ClientFile struct {
	RequestTimeout string `toml:"request_timeout"`
	RefreshTimeout string `toml:"refresh_timeout"`
	DeviceInfo     string `toml:"device_info"`
}

type ResilienceFile struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	BreakerFailures   uint32  `toml:"breaker_failures"`
	BreakerTimeout    string  `toml:"breaker_timeout"`
}

type mainConfig struct {
	EnvVars
	Client
	Resilience
}

// New returns a Config built from environment variables and defaults only.
func New() Config {
	return FromFile(File{})
}

// FromFile returns a Config that falls back to the given file settings
// before the built-in defaults.
func FromFile(f File) Config {
	return mainConfig{
		EnvVars:    EnvVars{file: f},
		Client:     Client{file: f.Client},
		Resilience: Resilience{file: f.Resilience},
	}
}

// Load reads the TOML file at path (or $FLEET_CONFIG when path is empty).
// A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(configFileEnvVar)
	}
	if path == "" {
		return New(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	return FromFile(f), nil
}
