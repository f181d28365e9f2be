// Package fleetclient assembles the credential store, transport, refresh
// coordinator, auth gateway, session manager and route guard into one
// client. Nothing here is global; every CLI invocation or test builds its
// own Client.
package fleetclient

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	"github.com/jrsteele09/go-fleet-admin/credentials/boltstore"
	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/gateway"
	"github.com/jrsteele09/go-fleet-admin/guard"
	"github.com/jrsteele09/go-fleet-admin/internal/config"
	"github.com/jrsteele09/go-fleet-admin/refresh"
	"github.com/jrsteele09/go-fleet-admin/sessions"
	"github.com/jrsteele09/go-fleet-admin/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

// SessionFileName is the bolt file holding the persisted session.
const SessionFileName = "session.db"

// Client is the assembled fleet admin client.
type Client struct {
	Config    config.Config
	Store     credentials.Store
	Transport *transport.HTTPTransport
	Auth      *fleetapi.AuthAPI
	Refresh   *refresh.Coordinator
	Gateway   *gateway.Gateway
	Session   *sessions.Manager
	API       *fleetapi.Client
	Guard     *guard.Guard

	closer func() error
}

type options struct {
	store      credentials.Store
	httpClient *http.Client
	navigator  sessions.Navigator
	logger     zerolog.Logger
	entries    []guard.Entry
}

// Option configures New.
type Option func(*options)

// WithStore replaces the bolt store under the data folder.
func WithStore(store credentials.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithNavigator is told when a terminated session needs a fresh login.
func WithNavigator(navigator sessions.Navigator) Option {
	return func(o *options) {
		o.navigator = navigator
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNavEntries replaces the default navigation table.
func WithNavEntries(entries ...guard.Entry) Option {
	return func(o *options) {
		o.entries = entries
	}
}

// New wires a Client from cfg. The session starts in Bootstrapping; call
// Session.Bootstrap before use.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[fleetclient.New] config is required")
	}
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{Config: cfg, Store: o.store, closer: func() error { return nil }}
	if c.Store == nil {
		store, err := openBoltStore(cfg.GetDataFolder())
		if err != nil {
			return nil, err
		}
		c.Store = store
		c.closer = store.Close
	}

	deviceInfo := cfg.GetDeviceInfo()
	if identity, ok := c.Store.(credentials.DeviceIdentity); ok {
		id, err := identity.DeviceID()
		if err != nil {
			_ = c.closer()
			return nil, errors.Wrap(err, "[fleetclient.New] device id")
		}
		deviceInfo = fmt.Sprintf("%s device/%s", deviceInfo, id)
	}

	transportOpts := []transport.Option{
		transport.WithLogger(o.logger),
		transport.WithUserAgent(cfg.GetDeviceInfo()),
		transport.WithRateLimit(cfg.GetRequestsPerSecond(), cfg.GetBurst()),
		transport.WithCircuitBreaker(cfg.GetBreakerFailureThreshold(), cfg.GetBreakerTimeout()),
	}
	if o.httpClient != nil {
		transportOpts = append(transportOpts, transport.WithHTTPClient(o.httpClient))
	}
	transportOpts = append(transportOpts, transport.WithTimeout(cfg.GetRequestTimeout()))

	var err error
	if c.Transport, err = transport.New(cfg.GetBaseURL()+"/api", transportOpts...); err != nil {
		_ = c.closer()
		return nil, err
	}
	if c.Auth, err = fleetapi.NewAuthAPI(c.Transport, nil, deviceInfo); err != nil {
		_ = c.closer()
		return nil, err
	}

	managerOpts := []sessions.ManagerOption{sessions.WithLogger(o.logger)}
	if o.navigator != nil {
		managerOpts = append(managerOpts, sessions.WithNavigator(o.navigator))
	}
	if c.Session, err = sessions.NewManager(c.Store, c.Auth, managerOpts...); err != nil {
		_ = c.closer()
		return nil, err
	}

	if c.Refresh, err = refresh.NewCoordinator(c.Store, c.Auth,
		refresh.WithTimeout(cfg.GetRefreshTimeout()),
		refresh.WithFailureHook(c.Session.Terminate),
		refresh.WithLogger(o.logger),
	); err != nil {
		_ = c.closer()
		return nil, err
	}

	if c.Gateway, err = gateway.New(c.Transport, c.Store, c.Refresh,
		gateway.WithTerminator(gateway.TerminatorFunc(c.Session.Terminate)),
		gateway.WithLogger(o.logger),
	); err != nil {
		_ = c.closer()
		return nil, err
	}
	c.Auth.SetAuthorised(c.Gateway)

	if c.API, err = fleetapi.NewClient(c.Gateway); err != nil {
		_ = c.closer()
		return nil, err
	}
	c.Guard = guard.New(o.entries...)
	return c, nil
}

// Navigate evaluates destination against the current session.
func (c *Client) Navigate(destination string) guard.Decision {
	return c.Guard.Evaluate(c.Session.State(), c.Session.Principal(), destination)
}

// VisibleEntries returns the navigation entries the signed-in principal may
// see, or none when anonymous.
func (c *Client) VisibleEntries() []guard.Entry {
	if c.Session.State() != sessions.Authenticated {
		return nil
	}
	return c.Guard.VisibleEntries(c.Session.Principal())
}

// Start bootstraps the session and returns the settled state.
func (c *Client) Start(ctx context.Context) sessions.State {
	return c.Session.Bootstrap(ctx)
}

// Close releases the persisted store.
func (c *Client) Close() error {
	return c.closer()
}

func openBoltStore(dataFolder string) (*boltstore.Store, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrapf(err, "[fleetclient] creating data folder %s", dataFolder)
	}
	path := filepath.Join(dataFolder, SessionFileName)
	store, err := boltstore.Open(path, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "[fleetclient] opening session store %s", path)
	}
	return store, nil
}
