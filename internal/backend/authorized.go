package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"naspac-portal/internal/domain"
)

// TokenSource yields the bearer credential of one client
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Authorized issues requests on behalf of one client. The credential is read
// for every request, so a login or logout is visible immediately.
type Authorized struct {
	client *Client
	tokens TokenSource
}

// As returns the authorized request helper for tokens
func (c *Client) As(tokens TokenSource) *Authorized {
	return &Authorized{client: c, tokens: tokens}
}

func (a *Authorized) token(ctx context.Context) (string, error) {
	token, err := a.tokens.Token(ctx)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return "", domain.ErrNotAuthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return token, nil
}

func (a *Authorized) do(ctx context.Context, r request, out any) error {
	token, err := a.token(ctx)
	if err != nil {
		return err
	}
	r.token = token
	return a.client.do(ctx, r, out)
}

// Validate revalidates the stored credential
func (a *Authorized) Validate(ctx context.Context) (*domain.Validation, error) {
	var out domain.Validation
	if err := a.do(ctx, request{method: http.MethodGet, path: "/auth/validate"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the profile of the signed-in user
func (a *Authorized) Profile(ctx context.Context) (*domain.Profile, error) {
	var out domain.Profile
	if err := a.do(ctx, request{method: http.MethodGet, path: "/users/profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session on the backend
func (a *Authorized) Logout(ctx context.Context) error {
	return a.do(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
}

// OnboardingStatus reports whether the personnel submitted the onboarding form
func (a *Authorized) OnboardingStatus(ctx context.Context) (*domain.OnboardingStatus, error) {
	var out domain.OnboardingStatus
	if err := a.do(ctx, request{method: http.MethodGet, path: "/users/onboarding-status"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersonnelStatus fetches the submission status used to gate the personnel menu
func (a *Authorized) PersonnelStatus(ctx context.Context) (*domain.PersonnelStatus, error) {
	var out domain.PersonnelStatus
	if err := a.do(ctx, request{method: http.MethodGet, path: "/users/personnel-status"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications fetches every notification visible to the user
func (a *Authorized) Notifications(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	if err := a.do(ctx, request{method: http.MethodGet, path: "/documents/notifications"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fetch returns the raw JSON body of a view data path
func (a *Authorized) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := a.do(ctx, request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LetterType selects which appointment letter to download
type LetterType string

const (
	LetterEndorsed        LetterType = "endorsed"
	LetterJobConfirmation LetterType = "job_confirmation"
)

// Document is a downloaded file
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// DownloadLetter fetches the personnel's endorsed or appointment letter
func (a *Authorized) DownloadLetter(ctx context.Context, letter LetterType) (*Document, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.send(ctx, request{
		method: http.MethodGet,
		path:   "/documents/personnel/download-appointment-letter",
		query:  url.Values{"type": {string(letter)}}.Encode(),
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidResponse, maxDocumentSize)
	}

	doc := &Document{
		Filename:    defaultFilename(letter),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/pdf"
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		doc.Filename = params["filename"]
	}
	return doc, nil
}

func defaultFilename(letter LetterType) string {
	if letter == LetterEndorsed {
		return "endorsed-appointment-letter.pdf"
	}
	return "appointment-letter.pdf"
}
