package fleetapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	"github.com/jrsteele09/go-fleet-admin/credentials/repofake"
	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/gateway"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/internal/stubserver"
	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/jrsteele09/go-fleet-admin/refresh"
	"github.com/jrsteele09/go-fleet-admin/transport"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/stretchr/testify/require"
)

const (
	operatorEmail  = "operator@fleet.test"
	executiveEmail = "exec@fleet.test"
	password       = "secret1"
)

type testFixture struct {
	server *stubserver.Server
	store  *repofake.FakeCredentialStore
	auth   *fleetapi.AuthAPI
	client *fleetapi.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	srv := stubserver.New()
	srv.AddAccount(operatorEmail, password, users.Principal{ID: "7", DisplayName: "Operator One", Roles: users.NewRoleSet(string(users.RoleOperator)), BranchID: utils.Ptr(int64(1))})
	srv.AddAccount(executiveEmail, password, users.Principal{ID: "9", DisplayName: "Exec", Roles: users.NewRoleSet(string(users.RoleExecutiveManagement))})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	tr, err := transport.New(ts.URL + "/api")
	require.NoError(t, err)
	auth, err := fleetapi.NewAuthAPI(tr, nil, "fleetapi-test")
	require.NoError(t, err)

	store := repofake.NewFakeCredentialStore()
	coordinator, err := refresh.NewCoordinator(store, auth)
	require.NoError(t, err)
	gw, err := gateway.New(tr, store, coordinator)
	require.NoError(t, err)
	auth.SetAuthorised(gw)

	client, err := fleetapi.NewClient(gw)
	require.NoError(t, err)

	return &testFixture{server: srv, store: store, auth: auth, client: client}
}

func (f *testFixture) signIn(t *testing.T, email string) {
	t.Helper()
	creds, _, err := f.auth.Login(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(*creds))
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	creds, principal, err := f.auth.Login(context.Background(), operatorEmail, password)
	require.NoError(t, err)
	require.True(t, creds.Complete())
	require.Equal(t, "7", principal.ID)
	require.Equal(t, "Operator One", principal.DisplayName)
	require.True(t, principal.HasRole(users.RoleOperator))

	info, err := credentials.Inspect(creds.AccessToken)
	require.NoError(t, err)
	require.Equal(t, operatorEmail, info.Subject)
	require.False(t, info.Expired())
}

func TestLoginRejectedCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.auth.Login(context.Background(), operatorEmail, "bad")
	require.ErrorIs(t, err, fleeterrors.ErrCredentialsInvalid)

	_, _, err = f.auth.Login(context.Background(), operatorEmail, "")
	require.ErrorIs(t, err, fleeterrors.ErrCredentialsInvalid)

	require.Equal(t, 0, f.server.RefreshCalls())
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)
	creds, _, err := f.auth.Login(context.Background(), operatorEmail, password)
	require.NoError(t, err)

	rotated, err := f.auth.Refresh(context.Background(), creds.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, creds.AccessToken, rotated.AccessToken)
	require.NotEmpty(t, rotated.RefreshToken)

	_, err = f.auth.Refresh(context.Background(), creds.RefreshToken)
	require.ErrorIs(t, err, fleeterrors.ErrAuthExpired, "rotated refresh token is spent")

	f.server.RotateRefreshTokens(false)
	kept, err := f.auth.Refresh(context.Background(), rotated.RefreshToken)
	require.NoError(t, err)
	require.Empty(t, kept.RefreshToken)

	f.server.FailRefresh(http.StatusBadGateway)
	_, err = f.auth.Refresh(context.Background(), rotated.RefreshToken)
	var statusErr *fleeterrors.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	creds, _, err := f.auth.Login(context.Background(), operatorEmail, password)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(context.Background(), creds.RefreshToken))
	require.Equal(t, 1, f.server.LogoutCalls())

	_, err = f.auth.Refresh(context.Background(), creds.RefreshToken)
	require.Error(t, err)
}

func TestMeRecoversFromExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, operatorEmail)
	f.server.ExpireAccessTokens()

	principal, err := f.auth.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "7", principal.ID)
	require.Equal(t, 1, f.server.RefreshCalls())
	require.Equal(t, 2, f.server.Hits("GET /api/auth/me"))
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)
	account := users.NewAccount{Name: "New Operator", Email: "new@fleet.test", Password: "secret12", Role: "Operator"}

	f.signIn(t, operatorEmail)
	err := f.auth.Register(context.Background(), account)
	require.ErrorIs(t, err, fleeterrors.ErrForbidden)

	f.signIn(t, executiveEmail)
	require.NoError(t, f.auth.Register(context.Background(), account))
	require.Len(t, f.server.Registered(), 1)

	account.Password = "short"
	require.Error(t, f.auth.Register(context.Background(), account))
	require.Len(t, f.server.Registered(), 1)
}

func TestVehicles(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, operatorEmail)
	ctx := context.Background()

	all, err := f.client.Vehicles(ctx, fleetapi.VehicleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	active, err := f.client.Vehicles(ctx, fleetapi.VehicleFilter{Status: fleetapi.VehicleActive})
	require.NoError(t, err)
	require.Len(t, active, 2)

	branch, err := f.client.Vehicles(ctx, fleetapi.VehicleFilter{BranchID: utils.Ptr(int64(2))})
	require.NoError(t, err)
	require.Len(t, branch, 1)
	require.Equal(t, "51G-111.22", branch[0].LicensePlate)

	created, err := f.client.CreateVehicle(ctx, fleetapi.VehicleInput{LicensePlate: "30K-999.99", Mileage: utils.Ptr(int64(1200))})
	require.NoError(t, err)
	require.Equal(t, fleetapi.VehicleActive, created.Status)

	updated, err := f.client.UpdateVehicle(ctx, created.ID, fleetapi.VehicleInput{LicensePlate: "30K-999.99", Status: fleetapi.VehicleInMaintenance})
	require.NoError(t, err)
	require.Equal(t, fleetapi.VehicleInMaintenance, updated.Status)

	got, err := f.client.Vehicle(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, fleetapi.VehicleInMaintenance, got.Status)

	_, err = f.client.Vehicle(ctx, 999)
	require.ErrorIs(t, err, fleeterrors.ErrNotFound)

	_, err = f.client.CreateVehicle(ctx, fleetapi.VehicleInput{})
	require.Error(t, err)
}

func TestMaintenanceRequests(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, operatorEmail)
	ctx := context.Background()

	fixed := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	fleetapi.NowTimeFunc = func() time.Time { return fixed }
	t.Cleanup(func() { fleetapi.NowTimeFunc = time.Now })

	pending, err := f.client.MaintenanceRequests(ctx, fleetapi.MaintenanceFilter{Status: fleetapi.MaintenancePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	created, err := f.client.CreateMaintenanceRequest(ctx, fleetapi.MaintenanceInput{VehicleID: 3, MaintenanceType: fleetapi.MaintenanceRepair, Description: "brakes"})
	require.NoError(t, err)
	require.Equal(t, fleetapi.MaintenancePending, created.Status)

	repairs, err := f.client.MaintenanceRequests(ctx, fleetapi.MaintenanceFilter{Type: fleetapi.MaintenanceRepair})
	require.NoError(t, err)
	require.Len(t, repairs, 1)

	require.NoError(t, f.client.DecideMaintenanceRequest(ctx, created.ID, fleetapi.MaintenanceApproved))
	decided, err := f.client.MaintenanceRequest(ctx, created.ID, false)
	require.NoError(t, err)
	require.Equal(t, fleetapi.MaintenanceApproved, decided.Status)
	require.Equal(t, "2026-03-14", decided.ApprovedDate)

	require.Error(t, f.client.DecideMaintenanceRequest(ctx, created.ID, fleetapi.MaintenanceCompleted))

	require.NoError(t, f.client.DeleteMaintenanceRequest(ctx, created.ID))
	_, err = f.client.MaintenanceRequest(ctx, created.ID, false)
	require.ErrorIs(t, err, fleeterrors.ErrNotFound)
	deleted, err := f.client.MaintenanceRequest(ctx, created.ID, true)
	require.NoError(t, err)
	require.Equal(t, "brakes", deleted.Description)

	_, err = f.client.CreateMaintenanceRequest(ctx, fleetapi.MaintenanceInput{VehicleID: 3, MaintenanceType: "Wash"})
	require.Error(t, err)
}

func TestDistribution(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, operatorEmail)
	ctx := context.Background()

	stock, err := f.client.Stock(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 2)
	require.Equal(t, "Ha Noi", stock[0].BranchName)

	_, err = f.client.CreateTransfer(ctx, fleetapi.TransferInput{VehicleID: 1, FromBranchID: 1, ToBranchID: 1})
	require.Error(t, err)

	transfer, err := f.client.CreateTransfer(ctx, fleetapi.TransferInput{VehicleID: 1, FromBranchID: 1, ToBranchID: 2, PlanDate: utils.Ptr("2026-04-01")})
	require.NoError(t, err)
	require.Equal(t, "Sai Gon", transfer.ToBranchName)

	require.NoError(t, f.client.UpdateTransferStatus(ctx, transfer.ID, fleetapi.TransferApproved))
	got, err := f.client.Transfer(ctx, transfer.ID)
	require.NoError(t, err)
	require.Equal(t, fleetapi.TransferApproved, got.Status)

	pending, err := f.client.Transfers(ctx, fleetapi.TransferPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestPendingRequestsAndProfile(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.signIn(t, operatorEmail)
	_, err := f.client.PendingRequests(ctx)
	require.ErrorIs(t, err, fleeterrors.ErrForbidden)

	profile, err := f.client.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(7), profile.ID)
	require.Equal(t, []string{string(users.RoleOperator)}, profile.Roles)

	f.signIn(t, executiveEmail)
	pending, err := f.client.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "Transfer", pending[0].Type)
}

func TestEnvelopeTolerantDecoding(t *testing.T) {
	bodies := map[string]string{
		"/distribution/stock":     `{"data":[{"branchId":1,"branchName":"A"}]}`,
		"/distribution/transfers": `[{"id":4,"status":"Pending"}]`,
		"/user/profile":           `{"message":"validation failed","error":"ignored"}`,
		"/pending-requests":       `{"error":"boom"}`,
	}
	statuses := map[string]int{"/user/profile": http.StatusUnprocessableEntity, "/pending-requests": http.StatusConflict}

	client, err := fleetapi.NewClient(fleetapi.SenderFunc(func(_ context.Context, req transport.Request) (*transport.Response, error) {
		status, ok := statuses[req.Path]
		if !ok {
			status = http.StatusOK
		}
		return &transport.Response{StatusCode: status, Body: []byte(bodies[req.Path])}, nil
	}))
	require.NoError(t, err)
	ctx := context.Background()

	stock, err := client.Stock(ctx)
	require.NoError(t, err)
	require.Equal(t, []fleetapi.BranchStock{{BranchID: 1, BranchName: "A"}}, stock)

	transfers, err := client.Transfers(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(4), transfers[0].ID)

	var statusErr *fleeterrors.StatusError
	_, err = client.Profile(ctx)
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "validation failed", statusErr.Message)

	_, err = client.PendingRequests(ctx)
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusConflict, statusErr.StatusCode)
	require.Equal(t, "boom", statusErr.Message)
}

func TestConstructorsValidate(t *testing.T) {
	_, err := fleetapi.NewClient(nil)
	require.Error(t, err)
	_, err = fleetapi.NewAuthAPI(nil, nil, "")
	require.Error(t, err)
}
