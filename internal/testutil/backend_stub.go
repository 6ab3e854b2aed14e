package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// BackendStub is a scripted NASPAC backend. Unscripted routes answer 404.
type BackendStub struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
	auth   map[string]string
}

// NewBackendStub starts a stub closed at test cleanup
func NewBackendStub(t *testing.T) *BackendStub {
	t.Helper()

	b := &BackendStub{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]int),
		auth:   make(map[string]string),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *BackendStub) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path

	b.mu.Lock()
	b.calls[route]++
	b.auth[route] = r.Header.Get("Authorization")
	handler, ok := b.routes[route]
	b.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	handler(w, r)
}

// Handle scripts route ("METHOD /path")
func (b *BackendStub) Handle(route string, handler http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = handler
}

// JSON scripts route to answer status with body encoded as JSON
func (b *BackendStub) JSON(route string, status int, body any) {
	b.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
}

// Calls returns how often route was hit
func (b *BackendStub) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls returns the number of requests received
func (b *BackendStub) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// LastAuthorization returns the Authorization header of the last call to route
func (b *BackendStub) LastAuthorization(route string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auth[route]
}
