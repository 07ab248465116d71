package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/gatekeeper/internal/i18n"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

const maxBodyBytes = 1 << 20

// AuthServiceInterface defines the login flow
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// RegistrationServiceInterface defines the registration and confirmation flows
type RegistrationServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	ConfirmEmail(ctx context.Context, email, code string) error
}

// PasswordResetServiceInterface defines the forgot and reset password flows
type PasswordResetServiceInterface interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, newPassword string) error
}

// AuthHandler handles the account form endpoints
type AuthHandler struct {
	auth         AuthServiceInterface
	registration RegistrationServiceInterface
	reset        PasswordResetServiceInterface
	catalog      *i18n.Catalog
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	auth AuthServiceInterface,
	registration RegistrationServiceInterface,
	reset PasswordResetServiceInterface,
	catalog *i18n.Catalog,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		reset:        reset,
		catalog:      catalog,
		logger:       logger,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,min=3,max=64"`
	LastName  string `json:"last_name" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,min=10,max=254,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// ConfirmEmailRequest represents the request body for email confirmation
type ConfirmEmailRequest struct {
	Email string `json:"email" validate:"required,min=10,max=254,email"`
	Code  string `json:"code" validate:"required,min=6,max=10"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,min=10,max=254,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ForgotPasswordRequest represents the request body for requesting a reset code
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,min=10,max=254,email"`
}

// ResetPasswordRequest represents the request body for applying a new password
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// resetCodeParam is the path segment carrying the reset code
type resetCodeParam struct {
	Code string `json:"code" validate:"len=16,alphanum"`
}

// Response DTOs

// MessageResponse is returned by endpoints that only confirm an action
type MessageResponse struct {
	Message string `json:"message"`
}

// UserEmail identifies an account by email only
type UserEmail struct {
	Email string `json:"email"`
}

// RegisterResponse is returned on successful registration
type RegisterResponse struct {
	Message string    `json:"message"`
	User    UserEmail `json:"user"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Message     string        `json:"message"`
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

// UnconfirmedResponse is the 401 body for a login with an unconfirmed email
type UnconfirmedResponse struct {
	pkghttp.ErrorResponse
	User UserEmail `json:"user"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Status      int       `json:"status"`
	IsConfirmed bool      `json:"is_confirmed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Status:      user.Status,
		IsConfirmed: user.IsConfirmed,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// Register handles account registration
// @Router /users/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	tr := h.catalog.Resolve(r.Header.Get("Accept-Language"))

	var req RegisterRequest
	if !decodeAndValidate(w, r, tr, &req) {
		return
	}

	user, err := h.registration.Register(r.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeFlowError(w, r, h.logger, tr, err, "general.user_not_found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message: tr.Get("register.register_success"),
		User:    UserEmail{Email: user.Email},
	})
}

// ConfirmEmail handles confirmation code submission
// @Router /users/confirm-email [post]
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	tr := h.catalog.Resolve(r.Header.Get("Accept-Language"))

	var req ConfirmEmailRequest
	if !decodeAndValidate(w, r, tr, &req) {
		return
	}

	if err := h.registration.ConfirmEmail(r.Context(), req.Email, req.Code); err != nil {
		writeFlowError(w, r, h.logger, tr, err, "general.user_not_found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: tr.Get("confirm_email.confirmation_success")})
}

// Login handles user login
// @Router /users/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	tr := h.catalog.Resolve(r.Header.Get("Accept-Language"))

	var req LoginRequest
	if !decodeAndValidate(w, r, tr, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if m := mapFlowError(err, ""); m.code == "unconfirmed" {
			pkghttp.WriteJSON(w, m.status, UnconfirmedResponse{
				ErrorResponse: pkghttp.ErrorResponse{Error: m.code, Message: tr.Get(m.key)},
				User:          UserEmail{Email: req.Email},
			})
			return
		}
		writeFlowError(w, r, h.logger, tr, err, "general.user_not_found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Message:     tr.Get("login.login_success"),
		AccessToken: result.AccessToken,
		User:        userModelToResponse(result.User),
	})
}

// ForgotPassword handles reset code requests
// @Router /users/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	tr := h.catalog.Resolve(r.Header.Get("Accept-Language"))

	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, tr, &req) {
		return
	}

	if err := h.reset.ForgotPassword(r.Context(), req.Email); err != nil {
		writeFlowError(w, r, h.logger, tr, err, "general.user_not_found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: tr.Get("forget_password.reset_code_sent")})
}

// ResetPassword applies a new password using the code from the reset email
// @Router /users/reset-password/{code} [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	tr := h.catalog.Resolve(r.Header.Get("Accept-Language"))

	code := resetCodeParam{Code: chi.URLParam(r, "code")}
	if fields := ValidateRequest(code, tr); fields != nil {
		pkghttp.WriteValidationError(w, tr.Get("general.validation_failed"), fields)
		return
	}

	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, tr, &req) {
		return
	}

	if err := h.reset.ResetPassword(r.Context(), code.Code, req.NewPassword); err != nil {
		writeFlowError(w, r, h.logger, tr, err, "general.invalid_code")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: tr.Get("reset_password.reset_success")})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}
