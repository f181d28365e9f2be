package stubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/users"
)

type contextKey string

const emailKey contextKey = "email"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps v in the {"data": ...} envelope most endpoints use.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func today() string {
	return time.Now().Format(fleetapi.DateLayout)
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.lock.Lock()
		s.hits[r.Method+" "+route]++
		s.lock.Unlock()
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		s.lock.Lock()
		email, valid := s.access[token]
		s.lock.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), emailKey, email)))
	})
}

func (s *Server) requireRole(roles ...users.RoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := s.principalFor(r)
			if !principal.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) principalFor(r *http.Request) *users.Principal {
	email, _ := r.Context().Value(emailKey).(string)
	s.lock.Lock()
	defer s.lock.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return nil
	}
	p := acc.principal
	return &p
}

type tokenPair struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	User         *users.Principal `json:"user,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	s.lock.Lock()
	s.loginCalls++
	s.lock.Unlock()
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	accessToken, refreshToken := s.issueLocked(req.Email)
	principal := acc.principal
	writeData(w, http.StatusOK, tokenPair{AccessToken: accessToken, RefreshToken: refreshToken, User: &principal})
}

// refreshTokens answers with a bare (unwrapped) token pair.
func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	s.lock.Lock()
	s.refreshCalls++
	hold := s.hold
	s.lock.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.refreshStatus != 0 {
		writeError(w, s.refreshStatus, "refresh rejected")
		return
	}
	email, ok := s.refresh[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	accessToken, refreshToken := s.issueLocked(email)
	if !s.rotate {
		delete(s.refresh, refreshToken)
		refreshToken = ""
	} else {
		delete(s.refresh, req.RefreshToken)
	}
	writeJSON(w, http.StatusOK, tokenPair{AccessToken: accessToken, RefreshToken: refreshToken})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	s.lock.Lock()
	s.logoutCalls++
	s.lock.Unlock()
	if !decodeBody(w, r, &req) {
		return
	}
	s.lock.Lock()
	delete(s.refresh, req.RefreshToken)
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	principal := s.principalFor(r)
	if principal == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeData(w, http.StatusOK, principal)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	principal := s.principalFor(r)
	if principal == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	id, _ := strconv.ParseInt(principal.ID, 10, 64)
	writeData(w, http.StatusOK, fleetapi.Profile{
		ID:            id,
		Name:          principal.DisplayName,
		Email:         principal.Email,
		BranchName:    principal.BranchName,
		Roles:         principal.Roles.Slice(),
		EmailVerified: true,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var acc users.NewAccount
	if !decodeBody(w, r, &acc) {
		return
	}
	if err := acc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.accounts[acc.Email]; exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	s.registered = append(s.registered, acc)
	writeData(w, http.StatusCreated, map[string]string{"email": acc.Email})
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	branch := r.URL.Query().Get("branchId")

	s.lock.Lock()
	list := make([]fleetapi.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		if status != "" && string(v.Status) != status {
			continue
		}
		if branch != "" && (v.CurrentBranchID == nil || strconv.FormatInt(*v.CurrentBranchID, 10) != branch) {
			continue
		}
		list = append(list, v)
	}
	s.lock.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeData(w, http.StatusOK, list)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.lock.Lock()
	v, found := s.vehicles[id]
	s.lock.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	writeData(w, http.StatusOK, v)
}

func applyVehicleInput(v *fleetapi.Vehicle, in fleetapi.VehicleInput) {
	v.LicensePlate = in.LicensePlate
	v.ModelID = in.ModelID
	v.YearManufacture = in.YearManufacture
	v.OriginalCost = in.OriginalCost
	v.CurrentValue = in.CurrentValue
	v.Mileage = in.Mileage
	v.CurrentDriverID = in.CurrentDriverID
	if in.PurchaseDate != nil {
		v.PurchaseDate = *in.PurchaseDate
	}
	if in.Status != "" {
		v.Status = in.Status
	}
}

func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	var in fleetapi.VehicleInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.lock.Lock()
	s.nextID++
	v := fleetapi.Vehicle{ID: s.nextID, Status: fleetapi.VehicleActive}
	applyVehicleInput(&v, in)
	s.vehicles[v.ID] = v
	s.lock.Unlock()
	writeData(w, http.StatusCreated, v)
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in fleetapi.VehicleInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	v, found := s.vehicles[id]
	if !found {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	applyVehicleInput(&v, in)
	s.vehicles[id] = v
	writeData(w, http.StatusOK, v)
}

func (s *Server) listMaintenance(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	kind := r.URL.Query().Get("type")

	s.lock.Lock()
	list := make([]fleetapi.MaintenanceRequest, 0, len(s.maintenance))
	for _, m := range s.maintenance {
		if status != "" && string(m.Status) != status {
			continue
		}
		if kind != "" && string(m.MaintenanceType) != kind {
			continue
		}
		list = append(list, m)
	}
	s.lock.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeData(w, http.StatusOK, list)
}

func (s *Server) getMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	includeDeleted, _ := strconv.ParseBool(r.URL.Query().Get("includeDeleted"))

	s.lock.Lock()
	m, found := s.maintenance[id]
	if !found && includeDeleted {
		m, found = s.deleted[id]
	}
	s.lock.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "maintenance request not found")
		return
	}
	writeData(w, http.StatusOK, m)
}

func (s *Server) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var in fleetapi.MaintenanceInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	v, found := s.vehicles[in.VehicleID]
	if !found {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	s.nextID++
	m := fleetapi.MaintenanceRequest{
		ID:              s.nextID,
		VehicleID:       in.VehicleID,
		LicensePlate:    v.LicensePlate,
		MaintenanceType: in.MaintenanceType,
		Description:     in.Description,
		EstimatedCost:   in.EstimatedCost,
		RequestDate:     today(),
		Status:          fleetapi.MaintenancePending,
	}
	if in.RequestDate != nil {
		m.RequestDate = *in.RequestDate
	}
	s.maintenance[m.ID] = m
	writeData(w, http.StatusCreated, m)
}

func (s *Server) updateMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in fleetapi.MaintenanceInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	m, found := s.maintenance[id]
	if !found {
		writeError(w, http.StatusNotFound, "maintenance request not found")
		return
	}
	m.VehicleID = in.VehicleID
	m.MaintenanceType = in.MaintenanceType
	m.Description = in.Description
	m.EstimatedCost = in.EstimatedCost
	if in.RequestDate != nil {
		m.RequestDate = *in.RequestDate
	}
	s.maintenance[id] = m
	writeData(w, http.StatusOK, m)
}

func (s *Server) deleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	m, found := s.maintenance[id]
	if !found {
		writeError(w, http.StatusNotFound, "maintenance request not found")
		return
	}
	delete(s.maintenance, id)
	s.deleted[id] = m
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) approveMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status       fleetapi.MaintenanceStatus `json:"status"`
		ApprovedDate string                     `json:"approvedDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	m, found := s.maintenance[id]
	if !found {
		writeError(w, http.StatusNotFound, "maintenance request not found")
		return
	}
	if m.Status != fleetapi.MaintenancePending {
		writeError(w, http.StatusConflict, "maintenance request already decided")
		return
	}
	m.Status = req.Status
	m.ApprovedDate = req.ApprovedDate
	s.maintenance[id] = m
	writeData(w, http.StatusOK, m)
}

// getStock answers with a bare array.
func (s *Server) getStock(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	stock := append([]fleetapi.BranchStock(nil), s.stock...)
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, stock)
}

func (s *Server) branchName(id int64) string {
	for _, b := range s.stock {
		if b.BranchID == id {
			return b.BranchName
		}
	}
	return ""
}

func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	s.lock.Lock()
	list := make([]fleetapi.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		if status != "" && string(t.Status) != status {
			continue
		}
		list = append(list, t)
	}
	s.lock.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeData(w, http.StatusOK, list)
}

func (s *Server) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.lock.Lock()
	t, found := s.transfers[id]
	s.lock.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "transfer not found")
		return
	}
	writeData(w, http.StatusOK, t)
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	var in fleetapi.TransferInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	v, found := s.vehicles[in.VehicleID]
	if !found {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	s.nextID++
	t := fleetapi.Transfer{
		ID:             s.nextID,
		VehicleID:      in.VehicleID,
		LicensePlate:   v.LicensePlate,
		FromBranchID:   in.FromBranchID,
		FromBranchName: s.branchName(in.FromBranchID),
		ToBranchID:     in.ToBranchID,
		ToBranchName:   s.branchName(in.ToBranchID),
		Status:         fleetapi.TransferPending,
	}
	if in.PlanDate != nil {
		t.PlanDate = *in.PlanDate
	}
	s.transfers[t.ID] = t
	writeData(w, http.StatusCreated, t)
}

func (s *Server) updateTransferStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status fleetapi.TransferStatus `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	t, found := s.transfers[id]
	if !found {
		writeError(w, http.StatusNotFound, "transfer not found")
		return
	}
	t.Status = req.Status
	s.transfers[id] = t
	writeData(w, http.StatusOK, t)
}

func (s *Server) listPending(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	pending := append([]fleetapi.PendingRequest(nil), s.pending...)
	s.lock.Unlock()
	writeData(w, http.StatusOK, pending)
}
