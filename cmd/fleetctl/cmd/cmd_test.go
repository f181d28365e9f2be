package cmd

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-fleet-admin/internal/stubserver"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server *stubserver.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	srv := stubserver.New()
	srv.AddAccount("u@x.com", "pw-123456", users.Principal{ID: "3", DisplayName: "Ops", Roles: users.NewRoleSet(string(users.RoleOperator))})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	t.Setenv("FLEET_BASE_URL", ts.URL)
	t.Setenv("FLEET_DATA_DIR", t.TempDir())
	t.Setenv("FLEET_CONFIG", "")
	return &testFixture{server: srv}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput, debugLog, configPath = false, false, ""
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoginNavigateLogout(t *testing.T) {
	f := setupTestFixture(t)

	out, err := execute(t, "login", "--email", "u@x.com", "--password", "pw-123456", "--return-to", "/vehicles")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ops")
	require.Contains(t, out, "fleetctl open /vehicles")

	out, err = execute(t, "vehicles", "--status", "", "--branch", "0")
	require.NoError(t, err)
	require.Contains(t, out, "29A-123.45")

	out, err = execute(t, "nav")
	require.NoError(t, err)
	require.Contains(t, out, "/maintenance")
	require.NotContains(t, out, "/pending")

	_, err = execute(t, "open", "/pending")
	require.ErrorContains(t, err, "your role cannot open /pending")

	out, err = execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Subject:  u@x.com")

	out, err = execute(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
	require.Equal(t, 1, f.server.LogoutCalls())

	_, err = execute(t, "vehicles", "--status", "", "--branch", "0")
	require.ErrorContains(t, err, "not signed in")
}

func TestLoginWithWrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := execute(t, "login", "--email", "u@x.com", "--password", "bad", "--return-to", "")
	require.ErrorContains(t, err, "email or password is incorrect")
	require.Equal(t, 0, f.server.RefreshCalls())
}

func TestDashboardRefreshesExpiredTokenOnce(t *testing.T) {
	f := setupTestFixture(t)
	_, err := execute(t, "login", "--email", "u@x.com", "--password", "pw-123456", "--return-to", "")
	require.NoError(t, err)

	f.server.ExpireAccessTokens()
	out, err := execute(t, "dashboard")
	require.NoError(t, err)
	require.Contains(t, out, "Pending transfers")
	require.Equal(t, 1, f.server.RefreshCalls())
}

func TestParseHelpers(t *testing.T) {
	v, err := parseID("#12")
	require.NoError(t, err)
	require.Equal(t, int64(12), v)
	_, err = parseID("abc")
	require.Error(t, err)

	status, err := parseTransferStatus("executed")
	require.NoError(t, err)
	require.Equal(t, "Executed", string(status))
	_, err = parseTransferStatus("Pending")
	require.Error(t, err)
}
