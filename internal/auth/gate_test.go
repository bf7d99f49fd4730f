package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	tests := []struct {
		name string
		in   GateInput
		want Decision
	}{
		{
			name: "restoring wins over everything",
			in:   GateInput{Restoring: true, Authenticated: false, RequiresAdmin: true, Requested: "/admin"},
			want: Decision{Outcome: Loading},
		},
		{
			name: "anonymous goes to login with return location",
			in:   GateInput{Requested: "/orders/me"},
			want: Decision{Outcome: RedirectLogin, Path: LoginPath, ReturnTo: "/orders/me"},
		},
		{
			name: "anonymous on admin view goes to login, not home",
			in:   GateInput{RequiresAdmin: true, Requested: "/admin/dashboard"},
			want: Decision{Outcome: RedirectLogin, Path: LoginPath, ReturnTo: "/admin/dashboard"},
		},
		{
			name: "customer on admin view goes home",
			in:   GateInput{Authenticated: true, RequiresAdmin: true, Requested: "/admin/dashboard"},
			want: Decision{Outcome: RedirectHome, Path: HomePath},
		},
		{
			name: "admin on admin view renders",
			in:   GateInput{Authenticated: true, Admin: true, RequiresAdmin: true, Requested: "/admin/dashboard"},
			want: Decision{Outcome: Render, Path: "/admin/dashboard"},
		},
		{
			name: "customer on protected view renders",
			in:   GateInput{Authenticated: true, Requested: "/profile"},
			want: Decision{Outcome: Render, Path: "/profile"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Gate(tt.in))
		})
	}
}

func TestDecision_LoginURL(t *testing.T) {
	assert.Equal(t, "/login", Decision{Outcome: RedirectLogin}.LoginURL())
	assert.Equal(t, "/login", Decision{Outcome: RedirectLogin, ReturnTo: "/login"}.LoginURL())
	assert.Equal(t, "/login?redirect=%2Forders%2Fme", Decision{Outcome: RedirectLogin, ReturnTo: "/orders/me"}.LoginURL())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "redirect_login", RedirectLogin.String())
	assert.Equal(t, "redirect_home", RedirectHome.String())
}
