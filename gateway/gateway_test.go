package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	"github.com/jrsteele09/go-fleet-admin/credentials/repofake"
	"github.com/jrsteele09/go-fleet-admin/gateway"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/refresh"
	"github.com/jrsteele09/go-fleet-admin/transport"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts only the currently valid access token.
type fakeServer struct {
	lock       sync.Mutex
	validToken string
	seen       []transport.Request
	status     int // forced status for every call when non-zero
	netErr     error
}

func (s *fakeServer) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.seen = append(s.seen, req)
	if s.netErr != nil {
		return nil, &transport.NetworkError{Method: req.Method, URL: req.Path, Err: s.netErr}
	}
	if s.status != 0 {
		return &transport.Response{StatusCode: s.status}, nil
	}
	if req.BearerToken() == "" || req.BearerToken() != s.validToken {
		return &transport.Response{StatusCode: http.StatusUnauthorized}, nil
	}
	return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
}

func (s *fakeServer) rotate(token string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.validToken = token
}

func (s *fakeServer) requests() []transport.Request {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]transport.Request(nil), s.seen...)
}

type testFixture struct {
	server      *fakeServer
	store       *repofake.FakeCredentialStore
	coordinator *refresh.Coordinator
	gateway     *gateway.Gateway
	release     chan struct{}
	refreshes   atomic.Int32
	terminated  atomic.Int32
}

// setupTestFixture wires a gateway whose refresher waits for release before
// answering with next (or refreshErr).
func setupTestFixture(t *testing.T, next *credentials.Credentials, refreshErr error) *testFixture {
	t.Helper()

	f := &testFixture{
		server:  &fakeServer{validToken: "A1"},
		store:   repofake.NewFakeCredentialStoreWith("A1", "R1"),
		release: make(chan struct{}),
	}

	refresher := refresh.RefresherFunc(func(ctx context.Context, refreshToken string) (*credentials.Credentials, error) {
		f.refreshes.Add(1)
		<-f.release
		if refreshErr != nil {
			return nil, refreshErr
		}
		f.server.rotate(next.AccessToken)
		return next, nil
	})

	terminate := func(ctx context.Context) {
		f.terminated.Add(1)
		_ = f.store.Clear()
	}

	c, err := refresh.NewCoordinator(f.store, refresher, refresh.WithFailureHook(terminate))
	require.NoError(t, err)
	f.coordinator = c

	g, err := gateway.New(f.server, f.store, c, gateway.WithTerminator(gateway.TerminatorFunc(terminate)))
	require.NoError(t, err)
	f.gateway = g
	return f
}

type sendResult struct {
	resp *transport.Response
	err  error
}

func (f *testFixture) sendConcurrently(paths ...string) chan sendResult {
	results := make(chan sendResult, len(paths))
	for _, p := range paths {
		go func(path string) {
			resp, err := f.gateway.Send(context.Background(), transport.Get(path))
			results <- sendResult{resp: resp, err: err}
		}(p)
	}
	return results
}

func TestAttachesCurrentToken(t *testing.T) {
	f := setupTestFixture(t, nil, nil)

	resp, err := f.gateway.Send(context.Background(), transport.Get("/assets/vehicles"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	seen := f.server.requests()
	require.Len(t, seen, 1)
	require.Equal(t, "A1", seen[0].BearerToken())
	require.False(t, seen[0].Retried)
}

func TestSendsUnauthenticatedWithoutToken(t *testing.T) {
	f := setupTestFixture(t, nil, nil)
	require.NoError(t, f.store.Clear())
	f.server.status = http.StatusOK

	_, err := f.gateway.Send(context.Background(), transport.Get("/health"))
	require.NoError(t, err)
	require.Empty(t, f.server.requests()[0].BearerToken())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t, &credentials.Credentials{AccessToken: "A2", RefreshToken: "R2"}, nil)
	f.server.rotate("A-expired")

	results := f.sendConcurrently("/assets/vehicles", "/maintenance-requests")
	require.Eventually(t, func() bool { return f.coordinator.Waiting() == 2 }, time.Second, time.Millisecond)
	close(f.release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		require.Equal(t, http.StatusOK, r.resp.StatusCode)
	}
	require.Equal(t, int32(1), f.refreshes.Load())
	require.Zero(t, f.terminated.Load())

	var replays int
	for _, req := range f.server.requests() {
		if req.Retried {
			replays++
			require.Equal(t, "A2", req.BearerToken())
		}
	}
	require.Equal(t, 2, replays)

	creds, err := f.store.Current()
	require.NoError(t, err)
	require.Equal(t, &credentials.Credentials{AccessToken: "A2", RefreshToken: "R2"}, creds)
}

func TestRefreshFailureRejectsQueuedCalls(t *testing.T) {
	f := setupTestFixture(t, nil, &fleeterrors.StatusError{StatusCode: http.StatusBadRequest})
	f.server.rotate("A-expired")

	results := f.sendConcurrently("/assets/vehicles", "/pending-requests")
	require.Eventually(t, func() bool { return f.coordinator.Waiting() == 2 }, time.Second, time.Millisecond)
	close(f.release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.ErrorIs(t, r.err, fleeterrors.ErrAuthFailed)
		require.Equal(t, http.StatusUnauthorized, r.resp.StatusCode)
	}
	require.Equal(t, int32(1), f.refreshes.Load())
	require.NotZero(t, f.terminated.Load())

	creds, err := f.store.Current()
	require.NoError(t, err)
	require.Nil(t, creds)
}

func TestRetriedRequestIsNotRefreshedTwice(t *testing.T) {
	f := setupTestFixture(t, &credentials.Credentials{AccessToken: "A2", RefreshToken: "R2"}, nil)
	close(f.release)
	f.server.status = http.StatusUnauthorized

	resp, err := f.gateway.Send(context.Background(), transport.Get("/assets/vehicles"))
	require.ErrorIs(t, err, fleeterrors.ErrAuthFailed)
	require.NotErrorIs(t, err, fleeterrors.ErrAuthExpired)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, int32(1), f.refreshes.Load())
	require.Equal(t, int32(1), f.terminated.Load())
	require.Len(t, f.server.requests(), 2)
}

func TestRetried401AfterLoginLeavesNewSessionAlone(t *testing.T) {
	store := repofake.NewFakeCredentialStoreWith("A1", "R1")
	var calls atomic.Int32
	server := transport.Func(func(ctx context.Context, req transport.Request) (*transport.Response, error) {
		if calls.Add(1) == 2 {
			// Another login lands while the replay is on the wire.
			require.NoError(t, store.Set(credentials.Credentials{AccessToken: "A9", RefreshToken: "R9"}))
		}
		return &transport.Response{StatusCode: http.StatusUnauthorized}, nil
	})
	refresher := refresh.RefresherFunc(func(ctx context.Context, refreshToken string) (*credentials.Credentials, error) {
		return &credentials.Credentials{AccessToken: "A2", RefreshToken: "R2"}, nil
	})
	c, err := refresh.NewCoordinator(store, refresher)
	require.NoError(t, err)
	var terminated atomic.Int32
	g, err := gateway.New(server, store, c, gateway.WithTerminator(gateway.TerminatorFunc(func(context.Context) { terminated.Add(1) })))
	require.NoError(t, err)

	_, err = g.Send(context.Background(), transport.Get("/assets/vehicles"))
	require.ErrorIs(t, err, fleeterrors.ErrSessionChanged)
	require.NotErrorIs(t, err, fleeterrors.ErrAuthFailed)
	require.Zero(t, terminated.Load())

	creds, err := store.Current()
	require.NoError(t, err)
	require.Equal(t, &credentials.Credentials{AccessToken: "A9", RefreshToken: "R9"}, creds)
}

func TestNonAuthFailuresPassThrough(t *testing.T) {
	f := setupTestFixture(t, nil, nil)
	f.server.status = http.StatusInternalServerError

	resp, err := f.gateway.Send(context.Background(), transport.Get("/assets/vehicles"))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	f.server.status = 0
	f.server.netErr = errors.New("connection refused")
	_, err = f.gateway.Send(context.Background(), transport.Get("/assets/vehicles"))
	var netErr *transport.NetworkError
	require.True(t, errors.As(err, &netErr))

	require.Len(t, f.server.requests(), 2)
	require.Zero(t, f.refreshes.Load())
	require.Zero(t, f.terminated.Load())
}

func TestNewValidatesDependencies(t *testing.T) {
	store := repofake.NewFakeCredentialStore()
	_, err := gateway.New(nil, store, nil)
	require.Error(t, err)
	_, err = gateway.New(&fakeServer{}, nil, nil)
	require.Error(t, err)
	_, err = gateway.New(&fakeServer{}, store, nil)
	require.Error(t, err)
}
