package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/platform/httpx"
	"github.com/pawnshop/backoffice/internal/rbac"
	"github.com/pawnshop/backoffice/internal/shared"
)

// IdempotencyHeader carries the client-chosen key of a save request.
const IdempotencyHeader = "Idempotency-Key"

// Handler manages user endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	saveLimit func(http.Handler) http.Handler
}

// NewHandler builds Handler instance. saveLimit caps saves per actor per minute.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, saveLimit int) *Handler {
	if saveLimit <= 0 {
		saveLimit = 30
	}
	limiter := httprate.Limit(saveLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "permission save rate exceeded")
		}),
	)
	return &Handler{logger: logger, service: service, rbac: rbac, saveLimit: limiter}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.listUsers)
		r.Get("/{userID}/permissions", h.showPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Get("/permissions/draft", h.newDraft)
		r.Post("/permissions/draft/role", h.draftSelectRole)
		r.Post("/permissions/draft/toggle", h.draftToggle)
		r.With(h.saveLimit).Put("/{userID}/permissions", h.savePermissions)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) showPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.service.OpenEditor(r.Context(), userID)
	if err != nil {
		h.fail(w, "open permission editor failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) newDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.NewDraft(r.Context())
	if err != nil {
		h.fail(w, "new permission draft failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) draftSelectRole(w http.ResponseWriter, r *http.Request) {
	var req SelectRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.SelectRole(r.Context(), req)
	if err != nil {
		h.fail(w, "draft select role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) draftToggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Toggle(r.Context(), req)
	if err != nil {
		h.fail(w, "draft toggle failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) savePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnauthorized, shared.ErrNoActor))
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var payload permissions.SavePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.SavePermissions(r.Context(), actor, userID, payload, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, "save user permissions failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.ValidationProblem(w, verr.Fields)
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, ErrRoleNotFound), errors.Is(err, ErrValidation):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, ErrOverlap), errors.Is(err, ErrDuplicateRequest):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	default:
		h.logger.Error(msg, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return id, true
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(actor.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
