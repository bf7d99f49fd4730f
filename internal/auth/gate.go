package auth

import "net/url"

// Outcome is the gate's verdict for a protected view.
type Outcome int

const (
	Render Outcome = iota
	Loading
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

type GateInput struct {
	Authenticated bool
	Admin         bool
	RequiresAdmin bool
	// Restoring is true while the persisted session is being checked.
	Restoring bool
	// Requested is the location the user asked for.
	Requested string
}

// Decision is what the caller should do. ReturnTo is set for RedirectLogin
// so the login flow can send the user back afterwards.
type Decision struct {
	Outcome  Outcome
	Path     string
	ReturnTo string
}

// Gate decides access to a protected view. It never decides while a
// session restore is in flight.
func Gate(in GateInput) Decision {
	switch {
	case in.Restoring:
		return Decision{Outcome: Loading}
	case !in.Authenticated:
		return Decision{Outcome: RedirectLogin, Path: LoginPath, ReturnTo: in.Requested}
	case in.RequiresAdmin && !in.Admin:
		return Decision{Outcome: RedirectHome, Path: HomePath}
	default:
		return Decision{Outcome: Render, Path: in.Requested}
	}
}

// LoginURL renders a login redirect with the return location attached.
func (d Decision) LoginURL() string {
	if d.ReturnTo == "" || d.ReturnTo == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"redirect": {d.ReturnTo}}.Encode()
}
