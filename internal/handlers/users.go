package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/i18n"
	"github.com/BradenHooton/gatekeeper/internal/models"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

// UserService defines the interface for account reads
type UserService interface {
	GetProfile(ctx context.Context, id int64) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
	catalog *i18n.Catalog
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, catalog *i18n.Catalog, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		catalog: catalog,
		logger:  logger,
	}
}

// Profile returns the account behind the bearer token
// @Router /users/profile [get]
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	tr := h.catalog.Resolve(r.Header.Get("Accept-Language"))

	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, tr.Get("general.unauthorized"))
		return
	}

	user, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeFlowError(w, r, h.logger, tr, err, "general.user_not_found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}
