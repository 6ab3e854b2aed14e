package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"naspac-portal/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestHealth_ReturnsOK(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	testutil.AssertStatusCode(t, w, http.StatusOK)
	testutil.AssertHeader(t, w, "Content-Type", "application/json")
	assert.Equal(t, "ok", testutil.DecodeJSON[map[string]string](t, w)["status"])
}

type readyBody struct {
	Status string                       `json:"status"`
	Checks map[string]HealthCheckResult `json:"checks"`
}

func TestReady(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }
	disabled := func(context.Context) error { return ErrDisabled }

	tests := []struct {
		name   string
		checks map[string]Checker
		status int
		want   string
	}{
		{"all up", map[string]Checker{"storage": up, "backend": up}, http.StatusOK, "ready"},
		{"optional disabled", map[string]Checker{"storage": up, "rabbitmq": disabled}, http.StatusOK, "ready"},
		{"storage down", map[string]Checker{"storage": down, "backend": up}, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Ready(tt.checks)(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			testutil.AssertStatusCode(t, w, tt.status)
			body := testutil.DecodeJSON[readyBody](t, w)
			assert.Equal(t, tt.want, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestReady_ReportsErrors(t *testing.T) {
	checks := map[string]Checker{
		"backend":  func(context.Context) error { return errors.New("timeout") },
		"rabbitmq": func(context.Context) error { return ErrDisabled },
	}

	w := httptest.NewRecorder()
	Ready(checks)(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	body := testutil.DecodeJSON[readyBody](t, w)
	assert.Equal(t, "down", body.Checks["backend"].Status)
	assert.Equal(t, "timeout", body.Checks["backend"].Error)
	assert.Equal(t, "disabled", body.Checks["rabbitmq"].Status)
}
