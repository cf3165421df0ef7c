package jobs

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/pawnshop/backoffice/internal/platform/httpx"
)

const pendingScanLimit = 200

// QueueInspector is the read side of asynq.Inspector used by the health endpoint.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListPendingTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// QueueHealth reports the refresh queue and which roles still wait for a refresh.
type QueueHealth struct {
	Queue           string  `json:"queue"`
	Pending         int     `json:"pending"`
	Active          int     `json:"active"`
	Scheduled       int     `json:"scheduled"`
	Retry           int     `json:"retry"`
	RefreshPending  []int64 `json:"refresh_pending_roles"`
	RefreshAllRoles bool    `json:"refresh_all_pending"`
	UniqueWindow    string  `json:"unique_window"`
}

// Handler serves the refresh queue health endpoint.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs the jobs handler; a nil inspector reports an empty queue.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	out := QueueHealth{
		Queue:          QueueDefault,
		RefreshPending: []int64{},
		UniqueWindow:   RefreshUniqueWindow.String(),
	}
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unreachable")
		return
	}
	if info != nil {
		out.Pending = info.Pending
		out.Active = info.Active
		out.Scheduled = info.Scheduled
		out.Retry = info.Retry
	}
	if out.Pending > 0 {
		tasks, err := h.inspector.ListPendingTasks(QueueDefault, asynq.PageSize(pendingScanLimit))
		if err != nil {
			h.logger.Warn("jobs health: list pending", slog.Any("error", err))
		}
		out.RefreshPending, out.RefreshAllRoles = pendingRefreshes(tasks)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// pendingRefreshes returns the sorted role ids of queued refresh tasks and
// whether a refresh of every role is queued.
func pendingRefreshes(tasks []*asynq.TaskInfo) ([]int64, bool) {
	roles := []int64{}
	all := false
	for _, t := range tasks {
		if t == nil || t.Type != TaskRoleBaselineRefresh {
			continue
		}
		var payload RoleBaselineRefreshPayload
		if len(t.Payload) > 0 && json.Unmarshal(t.Payload, &payload) != nil {
			continue
		}
		if payload.RoleID == 0 {
			all = true
			continue
		}
		if !slices.Contains(roles, payload.RoleID) {
			roles = append(roles, payload.RoleID)
		}
	}
	slices.Sort(roles)
	return roles, all
}
