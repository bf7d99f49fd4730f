// Package account runs the session lifecycle: login, registration, logout,
// restoring a persisted session, and tearing the session down when the API
// rejects its token.
package account

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/auth"
	"github.com/example/skycart/internal/domain/session"
	"github.com/example/skycart/internal/navigation"
	"github.com/example/skycart/internal/notice"
	"github.com/example/skycart/internal/query"
	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/store"
	"github.com/example/skycart/internal/validation"
)

// Client is the slice of the API the account flows use.
type Client interface {
	Login(ctx context.Context, req api.LoginRequest) (*readmodel.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*readmodel.AuthResponse, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) (*readmodel.MessageResponse, error)
	ResetPassword(ctx context.Context, token string, req api.ResetPasswordRequest) (*readmodel.MessageResponse, error)
	UpdatePassword(ctx context.Context, req api.UpdatePasswordRequest) (*readmodel.MessageResponse, error)
	UpdateProfile(ctx context.Context, req api.ProfileRequest) (*readmodel.User, error)
}

type Service struct {
	client   Client
	store    *store.Store
	queries  *query.Handler
	nav      *navigation.Navigator
	notifier notice.Notifier
	logger   logrus.FieldLogger

	mu       sync.Mutex
	tornDown map[string]bool
}

func NewService(
	client Client,
	st *store.Store,
	queries *query.Handler,
	nav *navigation.Navigator,
	notifier notice.Notifier,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		client:   client,
		store:    st,
		queries:  queries,
		nav:      nav,
		notifier: notifier,
		logger:   logger.WithField("component", "Account"),
		tornDown: make(map[string]bool),
	}
}

// Login signs in and navigates to returnTo, or home when it is empty.
func (s *Service) Login(ctx context.Context, req api.LoginRequest, returnTo string) (*readmodel.User, error) {
	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, s.fail("Login", err, true)
	}
	user, err := s.signIn(resp)
	if err != nil {
		return nil, err
	}
	s.notifier.Success("Login successful!")
	s.navigate(returnTo)
	return user, nil
}

func (s *Service) Register(ctx context.Context, req api.RegisterRequest) (*readmodel.User, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, s.fail("Register", err, true)
	}
	user, err := s.signIn(resp)
	if err != nil {
		return nil, err
	}
	s.notifier.Success("Registration successful!")
	s.navigate("")
	return user, nil
}

func (s *Service) signIn(resp *readmodel.AuthResponse) (*readmodel.User, error) {
	if _, err := s.store.Dispatch(session.SetCredentials{User: resp.User, Token: resp.Token}); err != nil {
		return nil, err
	}
	user := resp.User
	s.queries.Cache().Set(query.AuthUserKey, &user)
	s.logger.WithField("user_id", user.ID).Info("signed in")
	return &user, nil
}

func (s *Service) navigate(returnTo string) {
	if returnTo == "" || returnTo == navigation.PathLogin {
		returnTo = navigation.PathHome
	}
	s.nav.Navigate(returnTo)
}

// Logout tells the server best-effort, then always clears the local
// session and every cached query.
func (s *Service) Logout(ctx context.Context) error {
	if s.store.Token() != "" {
		if err := s.client.Logout(ctx); err != nil {
			s.logger.WithError(err).Warn("server logout failed, clearing local session anyway")
		}
	}
	if _, err := s.store.Dispatch(session.Logout{}); err != nil {
		return err
	}
	s.queries.Cache().Clear()
	s.notifier.Success("Logged out successfully")
	s.nav.Navigate(navigation.PathLogin)
	return nil
}

// Restore validates a persisted token against /auth/me. A JWT that has
// already expired is dropped without a request; any other token, including
// opaque ones, is left for the server to judge. A 401 runs the normal
// teardown through HandleUnauthorized.
func (s *Service) Restore(ctx context.Context) (*readmodel.User, error) {
	token := s.store.Token()
	if token == "" {
		return nil, nil
	}
	if _, err := auth.InspectToken(token); errors.Is(err, auth.ErrExpiredToken) {
		s.logger.WithError(err).Info("dropping expired persisted token")
		if _, err := s.store.Dispatch(session.Logout{}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if _, err := s.store.Dispatch(session.SetLoading{Loading: true}); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = s.store.Dispatch(session.SetLoading{Loading: false})
	}()

	user, err := s.queries.CurrentUser(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	if s.store.Token() != token {
		// The session changed while /auth/me was in flight.
		return nil, nil
	}
	if _, err := s.store.Dispatch(session.SetUser{User: *user}); err != nil {
		return nil, err
	}
	return user, nil
}

// HandleUnauthorized is the API client's 401 hook. The teardown runs at most
// once per token, only while that token is still the current one, and does
// not navigate when the user is already on the login view.
func (s *Service) HandleUnauthorized(tokenUsed string) {
	if tokenUsed == "" {
		return
	}
	s.mu.Lock()
	if s.tornDown[tokenUsed] {
		s.mu.Unlock()
		return
	}
	s.tornDown[tokenUsed] = true
	s.mu.Unlock()

	if s.store.Token() != tokenUsed {
		return
	}
	s.logger.Info("session rejected by server, signing out")
	if _, err := s.store.Dispatch(session.Logout{}); err != nil {
		s.logger.WithError(err).Warn("failed to clear session")
	}
	s.queries.Cache().Clear()
	if s.nav.Current() != navigation.PathLogin {
		s.nav.Navigate(navigation.PathLogin)
	}
}

func (s *Service) UpdateProfile(ctx context.Context, req api.ProfileRequest) (*readmodel.User, error) {
	user, err := s.client.UpdateProfile(ctx, req)
	if err != nil {
		return nil, s.fail("UpdateProfile", err, false)
	}
	if _, err := s.store.Dispatch(session.UpdateProfile{Name: user.Name, Email: user.Email, Avatar: user.Avatar}); err != nil {
		return nil, err
	}
	s.queries.Cache().Set(query.AuthUserKey, user)
	s.queries.Cache().Invalidate(query.AdminUserKey)
	s.notifier.Success("Profile updated successfully")
	return user, nil
}

func (s *Service) UpdatePassword(ctx context.Context, req api.UpdatePasswordRequest) error {
	if _, err := s.client.UpdatePassword(ctx, req); err != nil {
		return s.fail("UpdatePassword", err, false)
	}
	s.notifier.Success("Password updated successfully")
	return nil
}

func (s *Service) ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) error {
	if _, err := s.client.ForgotPassword(ctx, req); err != nil {
		return s.fail("ForgotPassword", err, true)
	}
	s.notifier.Success("Password reset email sent")
	return nil
}

// ResetPassword sets a new password from an emailed reset token and sends
// the user to the login view.
func (s *Service) ResetPassword(ctx context.Context, token string, req api.ResetPasswordRequest) error {
	if token == "" {
		return s.fail("ResetPassword", errors.New("reset token is required"), true)
	}
	if _, err := s.client.ResetPassword(ctx, token, req); err != nil {
		return s.fail("ResetPassword", err, true)
	}
	s.notifier.Success("Password reset successful")
	s.nav.Navigate(navigation.PathLogin)
	return nil
}

// fail raises the error notice. A 401 on a signed-in call is the teardown's
// business; on the credential forms it means bad credentials and is shown.
func (s *Service) fail(op string, err error, credentialForm bool) error {
	log := s.logger.WithError(err).WithField("op", op)
	switch {
	case validation.IsValidation(err):
		log.Debug("rejected invalid input")
	case api.IsUnauthorized(err) && !credentialForm:
		log.Info("unauthorized")
	default:
		log.Warn("account operation failed")
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			s.notifier.Error(api.Message(err))
		} else {
			s.notifier.Error(err.Error())
		}
	}
	return err
}
