package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/session"

	"github.com/go-playground/validator/v10"
)

// User-facing messages of the login and password flows
const (
	MsgPersonnelCredentialsRequired = "Please enter both NSS number and Password"
	MsgStaffCredentialsRequired     = "Please enter both Staff ID and Password"
	MsgInvalidCredentials           = "Invalid credentials. Please try again."
	MsgStaffOnly                    = "Access denied. Staff only access."
	MsgLoginFailed                  = "Login failed. Please try again."
	MsgLoginSuccessful              = "Login successful!"
	MsgOnboardingCheckFailed        = "Failed to verify onboarding status. Please try again."
	MsgOTPRequired                  = "Please enter the verification code"
	MsgOTPSent                      = "Enter the verification code sent to you"
	MsgInvalidOTP                   = "Invalid or expired verification code."
	MsgEmailRequired                = "Please enter an email address"
	MsgEmailInvalid                 = "Please enter a valid email address"
	MsgResetLinkSent                = "If an account exists, a reset link will be sent"
	MsgResetLinkFailed              = "Failed to send reset link. Please try again."
	MsgResetFieldsRequired          = "Please enter the reset token and a new password"
	MsgPasswordTooShort             = "Password must be at least 8 characters"
	MsgPasswordReset                = "Password reset successful"
	MsgResetFailed                  = "Failed to reset password. Please try again."
)

// Redirect targets of a completed login
const (
	RedirectHome           = "/"
	RedirectOnboardingForm = "/onboarding-form"
)

// FlowError is a login or password flow failure that was not a rejection
// by the backend, such as a transport error. Message is user-facing.
type FlowError struct {
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// LoginResult tells the caller how a login attempt ended
type LoginResult struct {
	Session     domain.SessionState `json:"session"`
	Redirect    string              `json:"redirect,omitempty"`
	OTPRequired bool                `json:"otpRequired,omitempty"`
	TempToken   string              `json:"tempToken,omitempty"`
	Message     string              `json:"message,omitempty"`
}

type personnelCredentials struct {
	NSSNumber string `validate:"required"`
	Password  string `validate:"required"`
}

type staffCredentials struct {
	StaffID  string `validate:"required"`
	Password string `validate:"required"`
}

type otpForm struct {
	TempToken string `validate:"required"`
	OTP       string `validate:"required"`
}

type forgotPasswordForm struct {
	Email string `validate:"required,email,max=255"`
}

type resetPasswordForm struct {
	Token       string `validate:"required"`
	NewPassword string `validate:"required,min=8"`
}

// AuthService runs the login flows against the backend and completes them
// on a client's session.
type AuthService struct {
	api      *backend.Client
	events   domain.SessionEventPublisher
	validate *validator.Validate
}

func NewAuthService(api *backend.Client, events domain.SessionEventPublisher) *AuthService {
	return &AuthService{
		api:      api,
		events:   events,
		validate: validator.New(),
	}
}

// LoginPersonnel signs a personnel in and decides where to go next from the
// onboarding status. A failed status check keeps the login but redirects nowhere.
func (s *AuthService) LoginPersonnel(ctx context.Context, c *Client, nssNumber, password string) (*LoginResult, error) {
	form := personnelCredentials{NSSNumber: strings.TrimSpace(nssNumber), Password: strings.TrimSpace(password)}
	if err := s.validate.Struct(form); err != nil {
		return nil, &domain.InputError{Message: MsgPersonnelCredentialsRequired}
	}

	resp, err := s.api.LoginPersonnel(ctx, form.NSSNumber, password)
	if err != nil {
		if errors.As(err, new(*backend.StatusError)) {
			return nil, rejected(backend.MessageOf(err), MsgInvalidCredentials)
		}
		return nil, &FlowError{Message: MsgLoginFailed, Err: err}
	}
	if resp.AccessToken == "" {
		return nil, rejected(resp.Message, MsgInvalidCredentials)
	}

	if err := s.complete(ctx, c, resp.AccessToken, domain.RolePersonnel); err != nil {
		return nil, err
	}

	status, err := c.Backend.OnboardingStatus(ctx)
	if err != nil {
		observability.FromContext(ctx).Warn("onboarding status check failed", "error", err)
		return nil, &FlowError{Message: MsgOnboardingCheckFailed, Err: err}
	}

	redirect := RedirectOnboardingForm
	if status.HasSubmitted {
		redirect = RedirectHome
	}
	c.Notices.Notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: MsgLoginSuccessful})
	return &LoginResult{Session: c.Session().State(), Redirect: redirect}, nil
}

// LoginStaff signs an administrator, staff member or supervisor in. The
// backend may ask for a one-time code first, answered with VerifyOTP.
func (s *AuthService) LoginStaff(ctx context.Context, c *Client, staffID, password string) (*LoginResult, error) {
	form := staffCredentials{StaffID: strings.TrimSpace(staffID), Password: strings.TrimSpace(password)}
	if err := s.validate.Struct(form); err != nil {
		return nil, &domain.InputError{Message: MsgStaffCredentialsRequired}
	}

	resp, err := s.api.LoginStaff(ctx, form.StaffID, password)
	if err != nil {
		if errors.As(err, new(*backend.StatusError)) {
			return nil, &domain.AuthError{Message: MsgStaffOnly}
		}
		return nil, &FlowError{Message: MsgLoginFailed, Err: err}
	}

	if resp.AccessToken == "" && resp.TempToken != "" {
		message := resp.Message
		if message == "" {
			message = MsgOTPSent
		}
		return &LoginResult{
			Session:     c.Session().State(),
			OTPRequired: true,
			TempToken:   resp.TempToken,
			Message:     message,
		}, nil
	}
	return s.completeStaff(ctx, c, resp)
}

// VerifyOTP completes a staff login that required a one-time code
func (s *AuthService) VerifyOTP(ctx context.Context, c *Client, tempToken, otp string) (*LoginResult, error) {
	form := otpForm{TempToken: strings.TrimSpace(tempToken), OTP: strings.TrimSpace(otp)}
	if err := s.validate.Struct(form); err != nil {
		return nil, &domain.InputError{Message: MsgOTPRequired}
	}

	resp, err := s.api.VerifyOTP(ctx, form.TempToken, form.OTP)
	if err != nil {
		if errors.As(err, new(*backend.StatusError)) {
			return nil, rejected(backend.MessageOf(err), MsgInvalidOTP)
		}
		return nil, &FlowError{Message: MsgLoginFailed, Err: err}
	}
	return s.completeStaff(ctx, c, resp)
}

func (s *AuthService) completeStaff(ctx context.Context, c *Client, resp *backend.LoginResponse) (*LoginResult, error) {
	role, err := domain.ParseRole(resp.Role)
	if resp.AccessToken == "" || err != nil || !role.IsStaff() {
		return nil, &domain.AuthError{Message: MsgStaffOnly}
	}

	if err := s.complete(ctx, c, resp.AccessToken, role); err != nil {
		return nil, err
	}
	c.Notices.Notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: MsgLoginSuccessful})
	return &LoginResult{Session: c.Session().State(), Redirect: RedirectHome}, nil
}

// complete stores the credential and records the role on the session
func (s *AuthService) complete(ctx context.Context, c *Client, token string, role domain.Role) error {
	st := c.Session()
	// a revalidation still in flight would overwrite the new identity
	if _, err := st.Wait(ctx); err != nil {
		return &FlowError{Message: MsgLoginFailed, Err: err}
	}

	if err := c.Credentials.Set(ctx, token); err != nil {
		return &FlowError{Message: MsgLoginFailed, Err: fmt.Errorf("store credential: %w", err)}
	}
	if err := st.SetRole(role); err != nil {
		return &FlowError{Message: MsgLoginFailed, Err: err}
	}
	st.Enrich(ctx)

	state := st.State()
	session.Publish(ctx, s.events, c.ID, domain.EventLoggedIn, state)
	observability.FromContext(ctx).Info("login completed", "role", role)
	return nil
}

// Logout ends the client's session
func (s *AuthService) Logout(ctx context.Context, c *Client) (session.Navigation, error) {
	return c.Session().Logout(ctx)
}

// ForgotPassword asks the backend to send a reset link to email
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	form := forgotPasswordForm{Email: strings.TrimSpace(email)}
	if err := s.validate.Struct(form); err != nil {
		if form.Email == "" {
			return "", &domain.InputError{Message: MsgEmailRequired}
		}
		return "", &domain.InputError{Message: MsgEmailInvalid}
	}

	resp, err := s.api.RequestPasswordReset(ctx, form.Email)
	if err != nil {
		if msg := backend.MessageOf(err); msg != "" {
			return "", &FlowError{Message: msg, Err: err}
		}
		return "", &FlowError{Message: MsgResetLinkFailed, Err: err}
	}
	if resp.Message != "" {
		return resp.Message, nil
	}
	return MsgResetLinkSent, nil
}

// ResetPassword sets a new password using the token from a reset link
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	form := resetPasswordForm{Token: strings.TrimSpace(token), NewPassword: newPassword}
	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "NewPassword" && fe.Tag() == "min" {
					return "", &domain.InputError{Message: MsgPasswordTooShort}
				}
			}
		}
		return "", &domain.InputError{Message: MsgResetFieldsRequired}
	}

	resp, err := s.api.ResetPassword(ctx, form.Token, form.NewPassword)
	if err != nil {
		if msg := backend.MessageOf(err); msg != "" {
			return "", &FlowError{Message: msg, Err: err}
		}
		return "", &FlowError{Message: MsgResetFailed, Err: err}
	}
	if resp.Message != "" {
		return resp.Message, nil
	}
	return MsgPasswordReset, nil
}

func rejected(message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return &domain.AuthError{Message: message}
}
