// Package guard decides whether a protected view may render for a session.
package guard

import "naspac-portal/internal/domain"

// Outcome is the guard's decision
type Outcome int

const (
	// RenderLoading means the session is still revalidating
	RenderLoading Outcome = iota
	// RedirectLogin means the client is anonymous
	RedirectLogin
	// RenderView means the protected view may render
	RenderView
)

func (o Outcome) String() string {
	switch o {
	case RenderLoading:
		return "loading"
	case RedirectLogin:
		return "redirect"
	case RenderView:
		return "render"
	default:
		return "unknown"
	}
}

// Decide maps a session snapshot to an Outcome. Loading always wins, so a
// redirect is never issued before revalidation has finished.
func Decide(st domain.SessionState) Outcome {
	switch {
	case st.Loading:
		return RenderLoading
	case st.Role == domain.RoleNone:
		return RedirectLogin
	default:
		return RenderView
	}
}
