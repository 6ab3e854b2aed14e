package middleware

import (
	"context"
	"net/http"
	"time"

	"naspac-portal/internal/observability"
	"naspac-portal/internal/service"
)

// ClientCookie identifies the browser a request comes from
const ClientCookie = "naspac_client"

// TabHeader names the browser tab a request comes from. Websocket upgrades,
// which cannot set headers, pass it as the "tab" query parameter instead.
const TabHeader = "X-Tab-ID"

const clientCookieMaxAge = 365 * 24 * time.Hour

type contextKey string

const clientKey contextKey = "client"

// ClientResolver finds or creates the client of a browser tab
type ClientResolver interface {
	ResolveTab(id, tab string) (*service.Client, bool, error)
}

// Client attaches the portal client named by the client cookie and the tab
// id to the request context, creating one for new browsers and tabs.
func Client(resolver ClientResolver, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(ClientCookie); err == nil {
				id = cookie.Value
			}

			tab := r.Header.Get(TabHeader)
			if tab == "" {
				tab = r.URL.Query().Get("tab")
			}

			client, created, err := resolver.ResolveTab(id, tab)
			if err != nil {
				observability.FromContext(r.Context()).Error("failed to resolve client", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if created || client.ID != id {
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookie,
					Value:    client.ID,
					Path:     "/",
					MaxAge:   int(clientCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithClient(r.Context(), client)
			ctx = observability.WithClientID(ctx, client.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClient returns the client attached by the Client middleware
func GetClient(ctx context.Context) (*service.Client, bool) {
	client, ok := ctx.Value(clientKey).(*service.Client)
	return client, ok
}

func WithClient(ctx context.Context, client *service.Client) context.Context {
	return context.WithValue(ctx, clientKey, client)
}
