package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/i18n"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID int64, email string) *http.Request {
	claims := &models.TokenClaims{UserID: userID}
	claims.Subject = email
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks status, error code and localised message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError, expectedMessage string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	if expectedMessage != "" {
		assert.Equal(t, expectedMessage, resp.Message)
	}
	return resp
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	c, err := i18n.NewCatalog("en")
	require.NoError(t, err)
	return c
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, email, password string) (*services.LoginResult, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrInternalServer
}

// MockRegistrationService implements RegistrationServiceInterface for testing
type MockRegistrationService struct {
	RegisterFunc     func(ctx context.Context, in services.RegisterInput) (*models.User, error)
	ConfirmEmailFunc func(ctx context.Context, email, code string) error
}

func (m *MockRegistrationService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockRegistrationService) ConfirmEmail(ctx context.Context, email, code string) error {
	if m.ConfirmEmailFunc != nil {
		return m.ConfirmEmailFunc(ctx, email, code)
	}
	return nil
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, code, newPassword string) error
}

func (m *MockPasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, code, newPassword)
	}
	return nil
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetProfileFunc func(ctx context.Context, id int64) (*models.User, error)
}

func (m *MockUserService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(context.Context) error {
	return m.Err
}
