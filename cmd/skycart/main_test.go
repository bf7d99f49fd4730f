package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skycart/internal/apitest"
	"github.com/example/skycart/internal/readmodel"
)

type cliFixture struct {
	srv     *apitest.Server
	envFile string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)

	dir := t.TempDir()
	t.Setenv("SKYCART_API_URL", srv.BaseURL())
	t.Setenv("SKYCART_STRIPE_URL", srv.StripeURL())
	t.Setenv("SKYCART_STATE_BACKEND", "file")
	t.Setenv("SKYCART_STATE_DIR", filepath.Join(dir, "state"))
	t.Setenv("SKYCART_LOG_LEVEL", "error")
	return &cliFixture{srv: srv, envFile: filepath.Join(dir, "missing.env")}
}

// run executes one CLI invocation. State carries over between runs through
// the file backend, the same way it does between real invocations.
func (f *cliFixture) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	app := newCLI()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"skycart", "--env-file", f.envFile}, args...))
	return out.String(), err
}

func TestCLI_ShopAndPay(t *testing.T) {
	f := newCLIFixture(t)
	lamp := f.srv.AddProduct(readmodel.Product{
		Name:        "Desk Lamp",
		Price:       decimal.NewFromInt(40),
		Description: "A lamp for the desk",
		Stock:       5,
	})

	out, err := f.run("login", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada")

	out, err = f.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")

	_, err = f.run("cart", "add", "--qty", "2", lamp.ID)
	require.NoError(t, err)

	out, err = f.run("cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Desk Lamp")
	assert.Contains(t, out, "$98.00")
	assert.Contains(t, out, "Add $20.00 more for free shipping.")

	_, err = f.run("checkout", "shipping",
		"--address", "1 Main Street",
		"--city", "Springfield",
		"--country", "US",
		"--postal-code", "12345",
		"--phone", "5551234567",
	)
	require.NoError(t, err)

	out, err = f.run("checkout", "confirm")
	require.NoError(t, err)
	assert.Contains(t, out, "Springfield")

	out, err = f.run("checkout", "pay")
	require.NoError(t, err)
	assert.Contains(t, out, "[Processing]")
	assert.Equal(t, 1, f.srv.Charges())

	out, err = f.run("cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty.")

	out, err = f.run("orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Processing")
}

func TestCLI_CartSurvivesWithoutLogin(t *testing.T) {
	f := newCLIFixture(t)
	lamp := f.srv.AddProduct(readmodel.Product{Name: "Desk Lamp", Price: decimal.NewFromInt(40), Stock: 5})

	_, err := f.run("cart", "add", lamp.ID)
	require.NoError(t, err)
	_, err = f.run("cart", "set", "--qty", "3", lamp.ID)
	require.NoError(t, err)

	out, err := f.run("cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "$120.00")

	_, err = f.run("cart", "add", "--qty", "3", lamp.ID)
	require.Error(t, err)

	_, err = f.run("cart", "remove", lamp.ID)
	require.NoError(t, err)
	out, err = f.run("cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty.")
}

func TestCLI_ProtectedCommandsNeedLogin(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run("whoami")
	assert.ErrorIs(t, err, errLoginRequired)

	_, err = f.run("checkout", "pay")
	assert.ErrorIs(t, err, errLoginRequired)
	assert.Zero(t, f.srv.CallCount("POST", "/payments/process"))
}

func TestCLI_AdminNeedsAdminRole(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run("login", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(t, err)

	_, err = f.run("admin", "stats")
	assert.ErrorIs(t, err, errAdminRequired)
	assert.Zero(t, f.srv.CallCount("GET", "/orders/admin/stats"))
}

func TestCLI_LogoutForgetsSession(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run("login", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(t, err)

	_, err = f.run("logout")
	require.NoError(t, err)

	_, err = f.run("whoami")
	assert.ErrorIs(t, err, errLoginRequired)
}

func TestCLI_RevokedTokenLogsOut(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run("login", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(t, err)

	f.srv.RevokeTokens()
	_, err = f.run("whoami")
	assert.ErrorIs(t, err, errLoginRequired)

	f.srv.ResetCalls()
	_, err = f.run("whoami")
	assert.ErrorIs(t, err, errLoginRequired)
	assert.Zero(t, f.srv.CallCount("GET", "/auth/me"))
}
