package users

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"strings"
)

// RoleType is a fleet role as issued by the server.
type RoleType string

const (
	RoleOperator              RoleType = "Operator"                // Creates maintenance requests, executes transfers
	RoleBranchAssetAccountant RoleType = "Branch Asset Accountant" // Approves maintenance and transfers for a branch
	RoleExecutiveManagement   RoleType = "Executive Management"    // Approves transfers, sees pending requests
	RoleAdmin                 RoleType = "Admin"                   // Account administration
)

// RoleSet is the principal's role set.
type RoleSet map[string]struct{}

type nullValue = struct{}

// NewRoleSet builds a set from role names.
func NewRoleSet(roles ...string) RoleSet {
	rs := make(RoleSet, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			rs[r] = nullValue{}
		}
	}
	return rs
}

// Clone copies the set.
func (rs RoleSet) Clone() RoleSet {
	if rs == nil {
		return nil
	}
	c := make(RoleSet, len(rs))
	for r := range rs {
		c[r] = nullValue{}
	}
	return c
}

func (rs RoleSet) Has(role RoleType) bool {
	_, ok := rs[string(role)]
	return ok
}

// Intersects reports whether any of required is in the set.
func (rs RoleSet) Intersects(required []RoleType) bool {
	for _, r := range required {
		if rs.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles sorted by name.
func (rs RoleSet) Slice() []string {
	roles := make([]string, 0, len(rs))
	for r := range rs {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func (rs RoleSet) String() string {
	return strings.Join(rs.Slice(), ", ")
}

func (rs RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Slice())
}

func (rs *RoleSet) UnmarshalJSON(data []byte) error {
	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	*rs = NewRoleSet(roles...)
	return nil
}

// Principal is the authenticated identity and its authorisation attributes.
type Principal struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"fullName,omitempty"`
	Email       string  `json:"email,omitempty"`
	Roles       RoleSet `json:"roles"`
	BranchID    *int64  `json:"branchId,omitempty"`
	BranchName  string  `json:"branchName,omitempty"`
}

// UnmarshalJSON accepts numeric or string ids and falls back from fullName
// to name to email for the display name.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"id"`
		FullName   string          `json:"fullName"`
		Name       string          `json:"name"`
		Email      string          `json:"email"`
		Roles      RoleSet         `json:"roles"`
		BranchID   *int64          `json:"branchId"`
		BranchName string          `json:"branchName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Principal{
		ID:          strings.Trim(string(raw.ID), `"`),
		DisplayName: firstNonEmpty(raw.FullName, raw.Name, raw.Email),
		Email:       raw.Email,
		Roles:       raw.Roles,
		BranchID:    raw.BranchID,
		BranchName:  raw.BranchName,
	}
	if p.ID == "null" {
		p.ID = ""
	}
	if p.Roles == nil {
		p.Roles = RoleSet{}
	}
	return nil
}

// Clone returns a copy that shares no maps or pointers with p.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	c.Roles = p.Roles.Clone()
	if p.BranchID != nil {
		id := *p.BranchID
		c.BranchID = &id
	}
	return &c
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role RoleType) bool {
	if p == nil {
		return false
	}
	return p.Roles.Has(role)
}

// HasAnyRole reports whether the principal holds any of roles.
func (p *Principal) HasAnyRole(roles ...RoleType) bool {
	if p == nil {
		return false
	}
	return p.Roles.Intersects(roles)
}

// Branch renders the branch for display.
func (p *Principal) Branch() string {
	switch {
	case p.BranchName != "":
		return p.BranchName
	case p.BranchID != nil:
		return "#" + strconv.FormatInt(*p.BranchID, 10)
	}
	return "-"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewAccount is the payload for registering a staff account.
type NewAccount struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Phone    *string  `json:"phone"`
	BranchID *int64   `json:"branchId"`
	Role     RoleType `json:"role"`
}

// RegistrableRoles are the roles an administrator may assign on registration.
// The server spells them without spaces here.
var RegistrableRoles = []RoleType{"Operator", "BranchAssetAccountant"}

// Validate checks the form rules enforced before the account is sent.
func (a NewAccount) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return fmt.Errorf("email is invalid")
	}
	if err := ValidatePasswordStrength(a.Password); err != nil {
		return err
	}
	for _, r := range RegistrableRoles {
		if a.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role must be one of %v", RegistrableRoles)
}

// ValidatePasswordStrength checks the minimum password length accepted by
// the registration form.
func ValidatePasswordStrength(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long")
	}
	return nil
}
