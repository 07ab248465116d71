package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/gatekeeper/internal/i18n"
	"github.com/BradenHooton/gatekeeper/internal/models"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

// errorMapping is the boundary contract for one flow error
type errorMapping struct {
	status int
	code   string
	key    string
}

// mapFlowError returns the status, error code and locale key for err.
// notFoundKey names the message for a 404, which differs per endpoint.
func mapFlowError(err error, notFoundKey string) errorMapping {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return errorMapping{http.StatusTooManyRequests, "rate_limit_exceeded", "general.too_many_attempts"}
	case errors.Is(err, models.ErrNotFound):
		return errorMapping{http.StatusNotFound, "not_found", notFoundKey}
	case errors.Is(err, models.ErrInvalidCredentials):
		return errorMapping{http.StatusBadRequest, "invalid_credentials", "login.invalid_credentials"}
	case errors.Is(err, models.ErrUnconfirmed):
		return errorMapping{http.StatusUnauthorized, "unconfirmed", "login.unconfirmed_email"}
	case errors.Is(err, models.ErrDuplicateEmail):
		return errorMapping{http.StatusBadRequest, "registered_email", "register.registered_email"}
	case errors.Is(err, models.ErrCodeExpired):
		return errorMapping{http.StatusBadRequest, "code_expired", "reset_password.code_expired"}
	case errors.Is(err, models.ErrInvalidOrExpiredCode):
		return errorMapping{http.StatusBadRequest, "invalid_code", "general.invalid_code"}
	case errors.Is(err, models.ErrWeakPassword):
		key := "password.too_short"
		var verr *pkgauth.PasswordValidationError
		if errors.As(err, &verr) {
			key = verr.Rule
		}
		return errorMapping{http.StatusBadRequest, "weak_password", key}
	default:
		return errorMapping{http.StatusInternalServerError, "internal_error", "general.internal_error"}
	}
}

// writeFlowError renders err for the client. Infrastructure failures are
// logged here and surfaced without detail.
func writeFlowError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, tr *i18n.Translations, err error, notFoundKey string) {
	m := mapFlowError(err, notFoundKey)

	if m.status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("category", models.CategoryOf(err).String()),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, tr.Get(m.key))
		return
	}

	pkghttp.WriteError(w, m.status, m.code, tr.Get(m.key))
}

// NotFound answers unknown routes with the JSON error body
func NotFound(catalog *i18n.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := catalog.Resolve(r.Header.Get("Accept-Language"))
		pkghttp.WriteNotFound(w, tr.Get("general.route_not_found"))
	}
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, tr *i18n.Translations, dst interface{}) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, tr.Get("general.invalid_request"))
		return false
	}

	if fields := ValidateRequest(dst, tr); fields != nil {
		pkghttp.WriteValidationError(w, tr.Get("general.validation_failed"), fields)
		return false
	}

	return true
}
