package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-fleet-admin/internal/config"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"APP_NAME", "ENV", "FLEET_BASE_URL", "FLEET_DATA_DIR", "FLEET_LOG_LEVEL", "FLEET_CONFIG",
		"FLEET_REQUEST_TIMEOUT", "FLEET_REFRESH_TIMEOUT", "FLEET_DEVICE_INFO", "FLEET_RATE_LIMIT"} {
		t.Setenv(name, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	c := config.New()

	require.Equal(t, "Fleet Admin", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Equal(t, 15*time.Second, c.GetRefreshTimeout())
	require.Contains(t, c.GetDeviceInfo(), "fleetctl/")
	require.Equal(t, 20.0, c.GetRequestsPerSecond())
	require.Equal(t, 10, c.GetBurst())
	require.Equal(t, uint32(5), c.GetBreakerFailureThreshold())
	require.Equal(t, 30*time.Second, c.GetBreakerTimeout())
}

func TestFileOverlayAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "fleet.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url = "https://fleet.example.com/"
data_dir = "/var/lib/fleetctl"

[client]
refresh_timeout = "5s"
device_info = "kiosk-7"

[resilience]
requests_per_second = 2.5
burst = 3
breaker_failures = 2
breaker_timeout = "1m"
`), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://fleet.example.com", c.GetBaseURL())
	require.Equal(t, "/var/lib/fleetctl", c.GetDataFolder())
	require.Equal(t, 5*time.Second, c.GetRefreshTimeout())
	require.Equal(t, "kiosk-7", c.GetDeviceInfo())
	require.Equal(t, 2.5, c.GetRequestsPerSecond())
	require.Equal(t, 3, c.GetBurst())
	require.Equal(t, uint32(2), c.GetBreakerFailureThreshold())
	require.Equal(t, time.Minute, c.GetBreakerTimeout())

	t.Setenv("FLEET_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("FLEET_REFRESH_TIMEOUT", "bogus")
	t.Setenv("FLEET_RATE_LIMIT", "0")
	require.Equal(t, "http://127.0.0.1:9999", c.GetBaseURL())
	require.Equal(t, 15*time.Second, c.GetRefreshTimeout())
	require.Equal(t, 0.0, c.GetRequestsPerSecond())
}

func TestLoadFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "fleet.toml")
	require.NoError(t, os.WriteFile(path, []byte(`app_name = "Depot"`), 0o600))
	t.Setenv("FLEET_CONFIG", path)

	c, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "Depot", c.GetAppName())
}

func TestLoadMissingOrInvalidFile(t *testing.T) {
	clearEnv(t)

	c, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("base_url = "), 0o600))
	_, err = config.Load(path)
	require.Error(t, err)
}
