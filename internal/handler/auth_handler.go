package handler

import (
	"net/http"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/service"
	"naspac-portal/internal/session"
)

// AuthHandler serves the login, password and logout flows
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// PersonnelLoginRequest is the personnel login form
type PersonnelLoginRequest struct {
	NSSNumber string `json:"nssNumber"`
	Password  string `json:"password"`
}

// StaffLoginRequest is the staff login form
type StaffLoginRequest struct {
	StaffID  string `json:"staffId"`
	Password string `json:"password"`
}

// VerifyOTPRequest answers the one-time code challenge of a staff login
type VerifyOTPRequest struct {
	TempToken string `json:"tempToken"`
	OTP       string `json:"otp"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest sets a new password
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// LogoutResponse tells the browser whether to navigate back
type LogoutResponse struct {
	NavigateBack bool                `json:"navigateBack"`
	Session      domain.SessionState `json:"session"`
}

// LoginPersonnel handles the personnel login
func (h *AuthHandler) LoginPersonnel(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	var req PersonnelLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.LoginPersonnel(r.Context(), c, req.NSSNumber, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LoginStaff handles the staff login. The result may ask for a one-time code.
func (h *AuthHandler) LoginStaff(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	var req StaffLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.LoginStaff(r.Context(), c, req.StaffID, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// VerifyOTP completes a staff login with a one-time code
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	var req VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), c, req.TempToken, req.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ForgotPassword requests a reset link
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	message, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// ResetPassword sets a new password from a reset token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	message, err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// Logout ends the session. A failed backend call keeps the session and
// answers 502; the browser stays where it is.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}

	nav, err := h.authService.Logout(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusBadGateway, session.NoticeLogoutFailed)
		return
	}
	writeJSON(w, http.StatusOK, LogoutResponse{
		NavigateBack: nav == session.NavigateBack,
		Session:      c.Session().State(),
	})
}
