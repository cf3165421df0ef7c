package roles

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/platform/httpx"
	"github.com/pawnshop/backoffice/internal/rbac"
	"github.com/pawnshop/backoffice/internal/shared"
)

// Handler manages role endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermUsersEdit))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}/permissions", h.rolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Post("/{roleID}/refresh", h.refresh)
	})
}

type rolePermissionsResponse struct {
	Role        Role                             `json:"role"`
	Permissions []permissions.RolePermissionFlag `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	role, flags, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		h.fail(w, "load role permissions failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rolePermissionsResponse{Role: role, Permissions: flags})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	if err := h.service.RequestRefresh(r.Context(), id); err != nil {
		h.fail(w, "enqueue baseline refresh failed", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"role_id": id, "status": "queued"})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, ErrRefreshUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		h.logger.Error(msg, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
