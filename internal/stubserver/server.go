// Package stubserver is an in-process fake of the fleet REST API. Tests
// control token validity and refresh behaviour and read call counters.
package stubserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/users"
)

// TokenTTL is the lifetime written into issued access tokens.
const TokenTTL = 15 * time.Minute

var signingKey = []byte("stubserver-signing-key")

type account struct {
	password  string
	principal users.Principal
}

// Server holds the fake API state.
type Server struct {
	lock     sync.Mutex
	accounts map[string]account // by email
	access   map[string]string  // access token -> email
	refresh  map[string]string  // refresh token -> email

	refreshStatus int
	rotate        bool
	hold          chan struct{}

	refreshCalls int
	loginCalls   int
	logoutCalls  int
	hits         map[string]int

	nextID      int64
	vehicles    map[int64]fleetapi.Vehicle
	maintenance map[int64]fleetapi.MaintenanceRequest
	deleted     map[int64]fleetapi.MaintenanceRequest
	transfers   map[int64]fleetapi.Transfer
	stock       []fleetapi.BranchStock
	pending     []fleetapi.PendingRequest
	registered  []users.NewAccount
}

// New returns a server seeded with a small fleet and no accounts.
func New() *Server {
	s := &Server{
		accounts:    make(map[string]account),
		access:      make(map[string]string),
		refresh:     make(map[string]string),
		rotate:      true,
		hits:        make(map[string]int),
		vehicles:    make(map[int64]fleetapi.Vehicle),
		maintenance: make(map[int64]fleetapi.MaintenanceRequest),
		deleted:     make(map[int64]fleetapi.MaintenanceRequest),
		transfers:   make(map[int64]fleetapi.Transfer),
	}
	s.seed()
	return s
}

// AddAccount registers a login.
func (s *Server) AddAccount(email, password string, principal users.Principal) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if principal.Email == "" {
		principal.Email = email
	}
	s.accounts[email] = account{password: password, principal: principal}
}

// Issue mints a valid token pair for email as if it had logged in.
func (s *Server) Issue(email string) (accessToken, refreshToken string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.issueLocked(email)
}

// ExpireAccessTokens makes every issued access token fail with 401.
func (s *Server) ExpireAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.access = make(map[string]string)
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores
// normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshStatus = status
}

// RotateRefreshTokens controls whether refresh issues a new refresh token.
func (s *Server) RotateRefreshTokens(rotate bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rotate = rotate
}

// HoldRefresh blocks refresh requests until the returned release is called.
func (s *Server) HoldRefresh() (release func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	hold := make(chan struct{})
	s.hold = hold
	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			if s.hold == hold {
				s.hold = nil
			}
			s.lock.Unlock()
			close(hold)
		})
	}
}

func (s *Server) RefreshCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshCalls
}

func (s *Server) LoginCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.loginCalls
}

func (s *Server) LogoutCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.logoutCalls
}

// Hits returns how many requests reached "METHOD /pattern".
func (s *Server) Hits(route string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.hits[route]
}

// Registered returns the accounts created through /auth/register.
func (s *Server) Registered() []users.NewAccount {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]users.NewAccount(nil), s.registered...)
}

// Handler returns the API router. Mount it at the server root; routes live
// under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countHits)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/refresh", s.refreshTokens)
		r.Post("/auth/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/auth/me", s.me)
			r.With(s.requireRole(users.RoleExecutiveManagement, users.RoleAdmin)).Post("/auth/register", s.register)
			r.Get("/user/profile", s.profile)

			r.Get("/assets/vehicles", s.listVehicles)
			r.Post("/assets/vehicles", s.createVehicle)
			r.Get("/assets/vehicles/{id}", s.getVehicle)
			r.Put("/assets/vehicles/{id}", s.updateVehicle)

			r.Get("/maintenance-requests", s.listMaintenance)
			r.Post("/maintenance-requests", s.createMaintenance)
			r.Get("/maintenance-requests/{id}", s.getMaintenance)
			r.Put("/maintenance-requests/{id}", s.updateMaintenance)
			r.Delete("/maintenance-requests/{id}", s.deleteMaintenance)
			r.Patch("/maintenance-requests/{id}/approval", s.approveMaintenance)

			r.Get("/distribution/stock", s.getStock)
			r.Get("/distribution/transfers", s.listTransfers)
			r.Post("/distribution/transfers", s.createTransfer)
			r.Get("/distribution/transfers/{id}", s.getTransfer)
			r.Put("/distribution/transfers/{id}/status", s.updateTransferStatus)

			r.With(s.requireRole(users.RoleExecutiveManagement)).Get("/pending-requests", s.listPending)
		})
	})
	return r
}

// issueLocked mints a signed access token and an opaque refresh token.
func (s *Server) issueLocked(email string) (string, string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic("stubserver: signing access token: " + err.Error())
	}
	refreshToken := uuid.NewString()
	s.access[accessToken] = email
	s.refresh[refreshToken] = email
	return accessToken, refreshToken
}

func (s *Server) seed() {
	hanoi, saigon := int64(1), int64(2)
	s.stock = []fleetapi.BranchStock{
		{BranchID: hanoi, BranchName: "Ha Noi", TotalVehicles: 2, ActiveVehicles: 1, InTransferVehicles: 1},
		{BranchID: saigon, BranchName: "Sai Gon", TotalVehicles: 1, ActiveVehicles: 1},
	}
	for _, v := range []fleetapi.Vehicle{
		{LicensePlate: "29A-123.45", Manufacturer: "Toyota", ModelName: "Vios", Status: fleetapi.VehicleActive, CurrentBranchID: &hanoi, CurrentBranchName: "Ha Noi"},
		{LicensePlate: "29A-678.90", Manufacturer: "Ford", ModelName: "Transit", Status: fleetapi.VehicleInTransfer, CurrentBranchID: &hanoi, CurrentBranchName: "Ha Noi"},
		{LicensePlate: "51G-111.22", Manufacturer: "Hyundai", ModelName: "Solati", Status: fleetapi.VehicleActive, CurrentBranchID: &saigon, CurrentBranchName: "Sai Gon"},
	} {
		s.nextID++
		v.ID = s.nextID
		s.vehicles[v.ID] = v
	}
	s.nextID++
	s.maintenance[s.nextID] = fleetapi.MaintenanceRequest{ID: s.nextID, VehicleID: 1, LicensePlate: "29A-123.45",
		MaintenanceType: fleetapi.MaintenanceRoutine, Description: "10,000 km service", RequestDate: "2026-01-05", Status: fleetapi.MaintenancePending}
	s.nextID++
	s.transfers[s.nextID] = fleetapi.Transfer{ID: s.nextID, VehicleID: 2, LicensePlate: "29A-678.90",
		FromBranchID: hanoi, FromBranchName: "Ha Noi", ToBranchID: saigon, ToBranchName: "Sai Gon", PlanDate: "2026-01-10", Status: fleetapi.TransferPending}
	s.nextID++
	s.pending = []fleetapi.PendingRequest{
		{ID: s.nextID, Type: "Transfer", Description: "Move 29A-678.90 to Sai Gon", ProposerName: "Operator One", RequestDate: "2026-01-04T09:00:00Z", Status: "Pending"},
	}
}
