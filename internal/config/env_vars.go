package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appNameVar   = "APP_NAME"
	baseURLVar   = "FLEET_BASE_URL"
	folderEnvVar = "FLEET_DATA_DIR"
	logLevelVar  = "FLEET_LOG_LEVEL"
)

type EnvVars struct {
	file File
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, orDefault(e.file.AppName, "Fleet Admin"))
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the fleet server root (e.g. "https://fleet.example.com").
// The REST API lives under "/api" on this host.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, orDefault(e.file.BaseURL, "http://localhost:8080")), "/")
}

// GetDataFolder is where the durable credential store lives.
func (e EnvVars) GetDataFolder() string {
	def := "./data"
	if home, err := os.UserHomeDir(); err == nil {
		def = filepath.Join(home, ".fleetctl")
	}
	return GetEnv(folderEnvVar, orDefault(e.file.DataFolder, def))
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, orDefault(e.file.LogLevel, "info"))
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
