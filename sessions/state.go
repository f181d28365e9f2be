package sessions

import "github.com/jrsteele09/go-fleet-admin/users"

// State is the client-side session state.
type State int

const (
	Bootstrapping State = iota // Validating a persisted token on startup
	Authenticated              // Principal known, credentials stored
	Anonymous                  // No credentials
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "unknown"
}

// Reason records what caused a transition.
type Reason string

const (
	ReasonBootstrap  Reason = "bootstrap"
	ReasonLogin      Reason = "login"
	ReasonLogout     Reason = "logout"
	ReasonTerminated Reason = "terminated" // credential recovery exhausted
)

// Event is published to subscribers after every state transition.
type Event struct {
	From      State
	To        State
	Reason    Reason
	Principal *users.Principal // nil unless To == Authenticated
}
