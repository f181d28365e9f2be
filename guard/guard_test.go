package guard_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/go-fleet-admin/guard"
	"github.com/jrsteele09/go-fleet-admin/sessions"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/stretchr/testify/require"
)

func principalWith(roles ...users.RoleType) *users.Principal {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return &users.Principal{ID: "1", Roles: users.NewRoleSet(names...)}
}

func routes(entries []guard.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Route)
	}
	return out
}

func TestAnonymousRedirectsToLoginRememberingDestination(t *testing.T) {
	g := guard.New()

	d := g.Evaluate(sessions.Anonymous, nil, "/vehicles/12")
	require.Equal(t, guard.Redirect, d.Action)
	require.Equal(t, "/login?returnTo=%2Fvehicles%2F12", d.Target)

	u, err := url.Parse(d.Target)
	require.NoError(t, err)
	require.Equal(t, "/vehicles/12", guard.ResumeTarget(u.Query()))

	d = g.Evaluate(sessions.Bootstrapping, nil, "/")
	require.Equal(t, guard.Decision{Action: guard.Redirect, Target: "/login"}, d)
}

func TestAuthenticatedAdmittedByRole(t *testing.T) {
	g := guard.New()
	operator := principalWith(users.RoleOperator)

	require.Equal(t, guard.Decision{Action: guard.Admit, Target: "/maintenance/new"},
		g.Evaluate(sessions.Authenticated, operator, "/maintenance/new"))
	require.Equal(t, guard.Decision{Action: guard.Admit, Target: "/vehicles"},
		g.Evaluate(sessions.Authenticated, operator, "vehicles/"))
	require.Equal(t, guard.Decision{Action: guard.Redirect, Target: "/"},
		g.Evaluate(sessions.Authenticated, operator, "/pending"))
}

func TestVisibleEntries(t *testing.T) {
	g := guard.New()

	require.Equal(t, []string{"/", "/vehicles", "/maintenance", "/distribution", "/profile"},
		routes(g.VisibleEntries(principalWith(users.RoleOperator))))
	require.Equal(t, []string{"/", "/vehicles", "/distribution", "/pending", "/register", "/profile"},
		routes(g.VisibleEntries(principalWith(users.RoleExecutiveManagement))))
	require.Equal(t, []string{"/", "/vehicles", "/register", "/profile"},
		routes(g.VisibleEntries(principalWith(users.RoleAdmin))))
	require.Equal(t, []string{"/", "/vehicles", "/profile"},
		routes(g.VisibleEntries(principalWith())))
}

func TestResolve(t *testing.T) {
	g := guard.New(
		guard.Entry{Route: "/"},
		guard.Entry{Route: "/distribution"},
		guard.Entry{Route: "/distribution/new", Roles: []users.RoleType{users.RoleOperator}},
	)

	e, ok := g.Resolve("/distribution/new")
	require.True(t, ok)
	require.Equal(t, "/distribution/new", e.Route)

	e, ok = g.Resolve("/")
	require.True(t, ok)
	require.Equal(t, "/", e.Route)

	_, ok = g.Resolve("/distributionx")
	require.False(t, ok)
}

func TestResumeTargetRejectsForeignTargets(t *testing.T) {
	for _, target := range []string{"", "https://evil.example", "//evil.example", "/login", "relative"} {
		require.Equal(t, "/", guard.ResumeTarget(url.Values{guard.ReturnToParam: {target}}), target)
	}
}
