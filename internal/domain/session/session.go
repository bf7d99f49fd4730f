// Package session holds the authentication state and its reducer.
package session

import (
	"errors"
	"fmt"

	"github.com/example/skycart/internal/readmodel"
)

var (
	ErrEmptyToken = errors.New("token is required")
	ErrNoUser     = errors.New("user is required")
)

// State is the client-owned auth sub-tree. IsAuthenticated is true exactly
// when Token is non-empty.
type State struct {
	User            *readmodel.User `json:"user"`
	Token           string          `json:"token"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	Loading         bool            `json:"loading"`
}

// FromToken builds the startup state from a persisted token.
func FromToken(token string) State {
	return State{Token: token, IsAuthenticated: token != ""}
}

func (s State) IsAdmin() bool {
	return s.IsAuthenticated && s.User.IsAdmin()
}

const (
	ActionSetCredentials = "auth/setCredentials"
	ActionSetUser        = "auth/setUser"
	ActionSetLoading     = "auth/setLoading"
	ActionLogout         = "auth/logout"
	ActionUpdateProfile  = "auth/updateProfile"
)

type Action interface {
	Type() string
	sessionAction()
}

type SetCredentials struct {
	User  readmodel.User
	Token string
}

// SetUser replaces the user after a successful /auth/me. It never changes
// the token.
type SetUser struct {
	User readmodel.User
}

type SetLoading struct {
	Loading bool
}

type Logout struct{}

// UpdateProfile merges non-empty fields into the current user.
type UpdateProfile struct {
	Name   string
	Email  string
	Avatar string
}

func (SetCredentials) Type() string { return ActionSetCredentials }
func (SetUser) Type() string        { return ActionSetUser }
func (SetLoading) Type() string     { return ActionSetLoading }
func (Logout) Type() string         { return ActionLogout }
func (UpdateProfile) Type() string  { return ActionUpdateProfile }

func (SetCredentials) sessionAction() {}
func (SetUser) sessionAction()        {}
func (SetLoading) sessionAction()     {}
func (Logout) sessionAction()         {}
func (UpdateProfile) sessionAction()  {}

// Reduce returns the next session state. The input is never mutated.
func Reduce(state State, action Action) (State, error) {
	switch a := action.(type) {
	case SetCredentials:
		if a.Token == "" {
			return state, ErrEmptyToken
		}
		user := a.User
		return State{User: &user, Token: a.Token, IsAuthenticated: true}, nil

	case SetUser:
		if state.Token == "" {
			// A user without a token would break the authenticated-iff-token rule.
			return state, fmt.Errorf("set user: %w", ErrEmptyToken)
		}
		user := a.User
		return State{User: &user, Token: state.Token, IsAuthenticated: true}, nil

	case SetLoading:
		next := state.clone()
		next.Loading = a.Loading
		return next, nil

	case Logout:
		return State{}, nil

	case UpdateProfile:
		if state.User == nil {
			return state, ErrNoUser
		}
		next := state.clone()
		if a.Name != "" {
			next.User.Name = a.Name
		}
		if a.Email != "" {
			next.User.Email = a.Email
		}
		if a.Avatar != "" {
			next.User.Avatar = a.Avatar
		}
		return next, nil

	default:
		return state, fmt.Errorf("unknown session action %T", action)
	}
}

func (s State) clone() State {
	next := s
	if s.User != nil {
		user := *s.User
		next.User = &user
	}
	return next
}
