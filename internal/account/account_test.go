package account

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/apitest"
	"github.com/example/skycart/internal/domain/session"
	"github.com/example/skycart/internal/navigation"
	"github.com/example/skycart/internal/notice"
	"github.com/example/skycart/internal/query"
	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/store"
)

type fixture struct {
	srv     *apitest.Server
	store   *store.Store
	svc     *Service
	queries *query.Handler
	nav     *navigation.Navigator
	notices *notice.Center
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return newFixtureOn(t, srv, token)
}

func newFixtureOn(t *testing.T, srv *apitest.Server, token string) *fixture {
	t.Helper()
	f := &fixture{
		srv:     srv,
		notices: notice.NewCenter(quietLogger()),
		nav:     navigation.New(navigation.PathHome, quietLogger()),
	}
	f.store = store.New(store.State{Session: session.FromToken(token)}, f.notices, quietLogger())
	client := api.NewClient(srv.BaseURL(), api.WithTokenSource(f.store.Token), api.WithLogger(quietLogger()))
	f.queries = query.NewHandler(client, query.NewCache(query.WithLogger(quietLogger())), quietLogger())
	f.svc = NewService(client, f.store, f.queries, f.nav, f.notices, quietLogger())
	client.SetUnauthorizedHandler(f.svc.HandleUnauthorized)
	return f
}

func (f *fixture) messages() []string {
	var out []string
	for _, n := range f.notices.Drain() {
		out = append(out, string(n.Level)+": "+n.Message)
	}
	return out
}

// ============================================
// Login / Register
// ============================================

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, "")
	f.srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)

	user, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret123"}, "")

	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.True(t, f.store.Session().IsAuthenticated)
	assert.NotEmpty(t, f.store.Token())
	cached, ok := f.queries.Cache().Get(query.AuthUserKey)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", cached.(*readmodel.User).Email)
	assert.Equal(t, navigation.PathHome, f.nav.Current())
	assert.Equal(t, []string{"success: Login successful!"}, f.messages())
}

func TestLogin_ReturnsToRequestedPage(t *testing.T) {
	f := newFixture(t, "")
	f.srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)

	_, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret123"}, navigation.PathShipping)

	require.NoError(t, err)
	assert.Equal(t, navigation.PathShipping, f.nav.Current())
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t, "")
	f.srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	f.nav.Navigate(navigation.PathLogin)

	_, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "wrong-pass"}, "")

	assert.True(t, api.IsUnauthorized(err))
	assert.False(t, f.store.Session().IsAuthenticated)
	assert.Equal(t, navigation.PathLogin, f.nav.Current())
	assert.Equal(t, []string{"error: Invalid email or password"}, f.messages())
}

func TestLogin_InvalidFormSkipsNetwork(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "not-an-email"}, "")

	assert.Error(t, err)
	assert.Zero(t, f.srv.CallCount(http.MethodPost, "/auth/login"))
	assert.Empty(t, f.messages())
}

func TestRegister(t *testing.T) {
	f := newFixture(t, "")

	user, err := f.svc.Register(context.Background(), api.RegisterRequest{Name: "Grace", Email: "grace@example.com", Password: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, readmodel.RoleUser, user.Role)
	assert.True(t, f.store.Session().IsAuthenticated)
	assert.Equal(t, []string{"success: Registration successful!"}, f.messages())

	_, err = f.svc.Register(context.Background(), api.RegisterRequest{Name: "Grace", Email: "grace@example.com", Password: "secret123"})
	assert.Error(t, err)
	assert.Equal(t, []string{"error: Duplicate email entered"}, f.messages())
}

// ============================================
// Logout
// ============================================

func TestLogout_ClearsSessionAndCache(t *testing.T) {
	f := newFixture(t, "")
	f.srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	_, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret123"}, "")
	require.NoError(t, err)
	f.queries.Cache().Set(query.ProductDetail("p1"), "cached")
	f.notices.Drain()

	require.NoError(t, f.svc.Logout(context.Background()))

	assert.False(t, f.store.Session().IsAuthenticated)
	assert.Zero(t, f.queries.Cache().Len())
	assert.Equal(t, navigation.PathLogin, f.nav.Current())
	assert.Equal(t, 1, f.srv.CallCount(http.MethodPost, "/auth/logout"))
	assert.Equal(t, []string{"success: Logged out successfully"}, f.messages())
}

func TestLogout_ServerFailureStillClearsLocally(t *testing.T) {
	f := newFixture(t, "")
	f.srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	_, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret123"}, "")
	require.NoError(t, err)
	f.srv.Fail(http.MethodPost, "/auth/logout", http.StatusInternalServerError, "boom")

	require.NoError(t, f.svc.Logout(context.Background()))

	assert.Empty(t, f.store.Token())
	assert.Equal(t, navigation.PathLogin, f.nav.Current())
}

// ============================================
// Restore
// ============================================

func TestRestore_ValidToken(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	f := newFixtureOn(t, srv, srv.Token("ada@example.com"))

	user, err := f.svc.Restore(context.Background())

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada@example.com", f.store.Session().User.Email)
	assert.True(t, f.store.Session().IsAuthenticated)
	assert.False(t, f.store.Session().Loading)
}

func TestRestore_NoToken(t *testing.T) {
	f := newFixture(t, "")

	user, err := f.svc.Restore(context.Background())

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, f.srv.Calls())
}

func TestRestore_ExpiredTokenSkipsTheServer(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	srv.SetTokenTTL(-time.Minute)
	f := newFixtureOn(t, srv, srv.Token("ada@example.com"))

	user, err := f.svc.Restore(context.Background())

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, f.store.Token())
	assert.Zero(t, srv.CallCount(http.MethodGet, "/auth/me"))
}

func TestRestore_OpaqueTokenIsCheckedByTheServer(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	token := srv.OpaqueToken("ada@example.com")
	f := newFixtureOn(t, srv, token)

	user, err := f.svc.Restore(context.Background())

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, token, f.store.Token())
	assert.True(t, f.store.Session().IsAuthenticated)
	assert.Equal(t, 1, srv.CallCount(http.MethodGet, "/auth/me"))
}

func TestRestore_UnknownOpaqueTokenTearsDown(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	f := newFixtureOn(t, srv, "not-a-jwt")

	user, err := f.svc.Restore(context.Background())

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, f.store.Token())
	assert.Equal(t, 1, srv.CallCount(http.MethodGet, "/auth/me"))
}

func TestRestore_RevokedTokenTearsDown(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	f := newFixtureOn(t, srv, srv.Token("ada@example.com"))
	srv.RevokeTokens()

	user, err := f.svc.Restore(context.Background())

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.False(t, f.store.Session().IsAuthenticated)
	assert.False(t, f.store.Session().Loading)
	assert.Equal(t, navigation.PathLogin, f.nav.Current())
	assert.Empty(t, f.messages(), "authorization loss raises no toast")
}

// ============================================
// 401 teardown
// ============================================

func TestHandleUnauthorized_OncePerToken(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	f := newFixtureOn(t, srv, srv.Token("ada@example.com"))
	f.nav.Navigate(navigation.PathCart)
	f.queries.Cache().Set(query.ProductDetail("p1"), "cached")

	var mu sync.Mutex
	var toLogin int
	f.nav.OnNavigate(func(_, to string) {
		if to == navigation.PathLogin {
			mu.Lock()
			toLogin++
			mu.Unlock()
		}
	})
	srv.RevokeTokens()

	var wg sync.WaitGroup
	for i := 1; i <= 6; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			_, err := f.queries.MyOrders(context.Background(), page, 10)
			assert.True(t, api.IsUnauthorized(err))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, toLogin)
	assert.Empty(t, f.store.Token())
	assert.Zero(t, f.queries.Cache().Len())
}

func TestHandleUnauthorized_NoRedirectOnLoginView(t *testing.T) {
	f := newFixture(t, "tok-1")
	f.nav.Navigate(navigation.PathLogin)
	before := len(f.nav.History())

	f.svc.HandleUnauthorized("tok-1")

	assert.Empty(t, f.store.Token())
	assert.Len(t, f.nav.History(), before)
}

func TestHandleUnauthorized_IgnoresStaleAndEmptyTokens(t *testing.T) {
	f := newFixture(t, "tok-new")

	f.svc.HandleUnauthorized("")
	f.svc.HandleUnauthorized("tok-old")

	assert.Equal(t, "tok-new", f.store.Token())
	assert.Equal(t, navigation.PathHome, f.nav.Current())
}

// ============================================
// Profile and password
// ============================================

func TestUpdateProfile(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	f := newFixtureOn(t, srv, "")
	_, err := f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret123"}, "")
	require.NoError(t, err)
	f.notices.Drain()

	user, err := f.svc.UpdateProfile(context.Background(), api.ProfileRequest{Name: "Ada Lovelace", Email: "ada@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "Ada Lovelace", f.store.Session().User.Name)
	cached, _ := f.queries.Cache().Get(query.AuthUserKey)
	assert.Equal(t, "Ada Lovelace", cached.(*readmodel.User).Name)
	assert.Equal(t, []string{"success: Profile updated successfully"}, f.messages())
}

func TestUpdatePassword(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)
	f := newFixtureOn(t, srv, srv.Token("ada@example.com"))

	err := f.svc.UpdatePassword(context.Background(), api.UpdatePasswordRequest{
		OldPassword: "wrong-one", NewPassword: "newsecret", ConfirmPassword: "newsecret",
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"error: Old password is incorrect"}, f.messages())

	err = f.svc.UpdatePassword(context.Background(), api.UpdatePasswordRequest{
		OldPassword: "secret123", NewPassword: "newsecret", ConfirmPassword: "newsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"success: Password updated successfully"}, f.messages())
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t, "")
	f.srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), api.ForgotPasswordRequest{Email: "ada@example.com"}))
	err := f.svc.ForgotPassword(context.Background(), api.ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.True(t, api.IsNotFound(err))

	err = f.svc.ResetPassword(context.Background(), "ada@example.com", api.ResetPasswordRequest{Password: "brandnew", ConfirmPassword: "brandnew"})
	require.NoError(t, err)
	assert.Equal(t, navigation.PathLogin, f.nav.Current())

	_, err = f.svc.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "brandnew"}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"success: Password reset email sent",
		"error: User not found with this email",
		"success: Password reset successful",
		"success: Login successful!",
	}, f.messages())
}
