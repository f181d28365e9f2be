// Package guard decides whether a navigation may proceed given the session
// state, and which role-scoped navigation entries a principal can see.
package guard

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-fleet-admin/sessions"
	"github.com/jrsteele09/go-fleet-admin/users"
)

const (
	LoginRoute    = "/login"
	HomeRoute     = "/"
	ReturnToParam = "returnTo"
)

// Entry is a navigation entry. An empty Roles list means every
// authenticated principal may see it.
type Entry struct {
	Route string
	Label string
	Roles []users.RoleType
}

// DefaultEntries is the fleet admin navigation.
var DefaultEntries = []Entry{
	{Route: "/", Label: "Dashboard"},
	{Route: "/vehicles", Label: "Vehicles"},
	{Route: "/maintenance", Label: "Maintenance", Roles: []users.RoleType{users.RoleOperator, users.RoleBranchAssetAccountant}},
	{Route: "/distribution", Label: "Distribution", Roles: []users.RoleType{users.RoleBranchAssetAccountant, users.RoleExecutiveManagement, users.RoleOperator}},
	{Route: "/pending", Label: "Pending requests", Roles: []users.RoleType{users.RoleExecutiveManagement}},
	{Route: "/register", Label: "Register account", Roles: []users.RoleType{users.RoleExecutiveManagement, users.RoleAdmin}},
	{Route: "/profile", Label: "Profile"},
}

// Action is the outcome of a guard evaluation.
type Action int

const (
	Admit Action = iota
	Redirect
)

// Decision tells the caller where to go. For Admit, Target is the requested
// destination; for Redirect, it is the redirect location.
type Decision struct {
	Action Action
	Target string
}

// Guard holds the navigation table.
type Guard struct {
	entries []Entry
}

// New returns a guard over entries, or DefaultEntries when none are given.
func New(entries ...Entry) *Guard {
	if len(entries) == 0 {
		entries = DefaultEntries
	}
	return &Guard{entries: entries}
}

// Evaluate admits authenticated principals to destinations their roles
// allow and redirects everyone else. Anonymous (and still bootstrapping)
// sessions go to the login route with the destination remembered.
func (g *Guard) Evaluate(state sessions.State, principal *users.Principal, destination string) Decision {
	destination = normalise(destination)
	if state != sessions.Authenticated || principal == nil {
		return Decision{Action: Redirect, Target: LoginURL(destination)}
	}
	if entry, ok := g.Resolve(destination); ok && !Visible(entry, principal) {
		return Decision{Action: Redirect, Target: HomeRoute}
	}
	return Decision{Action: Admit, Target: destination}
}

// VisibleEntries returns the entries principal may see, in table order.
func (g *Guard) VisibleEntries(principal *users.Principal) []Entry {
	visible := make([]Entry, 0, len(g.entries))
	for _, e := range g.entries {
		if Visible(e, principal) {
			visible = append(visible, e)
		}
	}
	return visible
}

// Resolve finds the entry owning destination: the home entry matches only
// exactly, the others by path prefix.
func (g *Guard) Resolve(destination string) (Entry, bool) {
	destination = normalise(destination)
	var best Entry
	found := false
	for _, e := range g.entries {
		if e.Route == HomeRoute {
			if destination == HomeRoute && !found {
				best, found = e, true
			}
			continue
		}
		if destination == e.Route || strings.HasPrefix(destination, e.Route+"/") {
			if !found || len(e.Route) > len(best.Route) {
				best, found = e, true
			}
		}
	}
	return best, found
}

// Visible reports whether principal may see entry.
func Visible(entry Entry, principal *users.Principal) bool {
	return len(entry.Roles) == 0 || principal.HasAnyRole(entry.Roles...)
}

// LoginURL is the login route remembering destination for after login.
func LoginURL(destination string) string {
	destination = normalise(destination)
	if destination == HomeRoute || destination == LoginRoute {
		return LoginRoute
	}
	return LoginRoute + "?" + url.Values{ReturnToParam: {destination}}.Encode()
}

// ResumeTarget returns where to go after a successful login. Only local
// paths are honoured.
func ResumeTarget(query url.Values) string {
	target := query.Get(ReturnToParam)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return HomeRoute
	}
	if normalise(target) == LoginRoute {
		return HomeRoute
	}
	return target
}

func normalise(destination string) string {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return HomeRoute
	}
	if !strings.HasPrefix(destination, "/") {
		destination = "/" + destination
	}
	if len(destination) > 1 {
		destination = strings.TrimRight(destination, "/")
	}
	return destination
}
