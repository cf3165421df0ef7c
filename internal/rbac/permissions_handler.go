package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/platform/httpx"
	"github.com/pawnshop/backoffice/internal/shared"
)

// PermissionsHandler serves the permission catalog.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView, shared.PermUsersEdit))
		r.Get("/", h.listPermissions)
	})
}

type moduleView struct {
	Module      string                   `json:"module"`
	Label       string                   `json:"label"`
	Permissions []permissions.Permission `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	modules := catalog.Modules()
	views := make([]moduleView, 0, len(modules))
	for _, m := range modules {
		views = append(views, moduleView{Module: m.Name, Label: permissions.ModuleLabel(m.Name), Permissions: m.Permissions})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": views})
}
