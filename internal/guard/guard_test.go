package guard

import (
	"testing"

	"naspac-portal/internal/domain"
)

func TestDecide_LoadingAlwaysWins(t *testing.T) {
	roles := append([]domain.Role{domain.RoleNone}, domain.Roles...)
	for _, role := range roles {
		t.Run(string(role), func(t *testing.T) {
			got := Decide(domain.SessionState{Role: role, Loading: true})
			if got != RenderLoading {
				t.Errorf("Decide(loading, %q) = %v, want %v", role, got, RenderLoading)
			}
		})
	}
}

func TestDecide_Resolved(t *testing.T) {
	if got := Decide(domain.SessionState{}); got != RedirectLogin {
		t.Errorf("anonymous: got %v, want %v", got, RedirectLogin)
	}

	for _, role := range domain.Roles {
		id := int64(1)
		if got := Decide(domain.SessionState{Role: role, UserID: &id}); got != RenderView {
			t.Errorf("%s: got %v, want %v", role, got, RenderView)
		}
	}
}

func TestOutcome_String(t *testing.T) {
	tests := map[Outcome]string{
		RenderLoading: "loading",
		RedirectLogin: "redirect",
		RenderView:    "render",
		Outcome(42):   "unknown",
	}
	for outcome, want := range tests {
		if got := outcome.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
