package backend

import (
	"context"
	"net/http"

	"naspac-portal/internal/domain"
)

// LoginResponse is returned by the login and OTP endpoints.
// TempToken without AccessToken means a one-time code is required.
type LoginResponse struct {
	AccessToken string         `json:"accessToken"`
	TempToken   string         `json:"tempToken"`
	Role        string         `json:"role"`
	UserID      *domain.UserID `json:"userId"`
	Message     string         `json:"message"`
}

// MessageResponse is the body of the password endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginPersonnel signs a personnel in with NSS number and password
func (c *Client) LoginPersonnel(ctx context.Context, nssNumber, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login-personnel",
		body:   map[string]string{"nssNumber": nssNumber, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginStaff signs an administrator, staff member or supervisor in
func (c *Client) LoginStaff(ctx context.Context, staffID, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login-staff-admin",
		body:   map[string]string{"staffId": staffID, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP exchanges a temporary token and one-time code for an access token
func (c *Client) VerifyOTP(ctx context.Context, tempToken, otp string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/verify-otp",
		body:   map[string]string{"tempToken": tempToken, "otp": otp},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordReset asks the backend to mail a reset link
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/request-forgot-password",
		body:   map[string]string{"email": email},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword sets a new password using the emailed reset token
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/reset-password",
		body:   map[string]string{"token": token, "newPassword": newPassword},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
