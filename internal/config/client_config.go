package config

import (
	"fmt"
	"runtime"
	"time"
)

// Version is stamped into the default device info.
var Version = "dev"

type ClientConfig interface {
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetDeviceInfo() string
}

type Client struct {
	file ClientFile
}

var _ ClientConfig = Client{}

func (c Client) GetRequestTimeout() time.Duration {
	return parseDuration(GetEnv("FLEET_REQUEST_TIMEOUT", c.file.RequestTimeout), 30*time.Second)
}

// GetRefreshTimeout bounds a single refresh episode. The episode is detached
// from caller cancellation, so this is the only thing that stops it.
func (c Client) GetRefreshTimeout() time.Duration {
	return parseDuration(GetEnv("FLEET_REFRESH_TIMEOUT", c.file.RefreshTimeout), 15*time.Second)
}

// GetDeviceInfo is sent with login and refresh calls as the client fingerprint.
func (c Client) GetDeviceInfo() string {
	return GetEnv("FLEET_DEVICE_INFO", orDefault(c.file.DeviceInfo, fmt.Sprintf("fleetctl/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)))
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
