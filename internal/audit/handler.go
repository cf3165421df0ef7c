package audit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pawnshop/backoffice/internal/platform/httpx"
	"github.com/pawnshop/backoffice/internal/rbac"
	"github.com/pawnshop/backoffice/internal/shared"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	rateLimit         = 10
	rateWindow        = time.Minute
	dateLayout        = "2006-01-02"
)

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler membuat handler audit timeline.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes mendaftarkan endpoint audit timeline.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "audit timeline rate exceeded")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAuditView, shared.PermUsersEdit))
		r.Use(limiter)
		r.Get("/", h.handleTimeline)
		r.Get("/users/{userID}", h.handleUserHistory)
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	h.respondTimeline(w, r, filters)
}

// handleUserHistory lists permission saves of one user.
func (h *Handler) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	filters.Entity = EntityUser
	filters.EntityID = strconv.FormatInt(userID, 10)
	filters.Action = ActionPermissionsSave
	h.respondTimeline(w, r, filters)
}

func (h *Handler) respondTimeline(w http.ResponseWriter, r *http.Request, filters TimelineFilters) {
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(dateLayout)
	}
	toTime, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return TimelineFilters{}, validationError{field: "to", msg: "expected YYYY-MM-DD"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format(dateLayout)
	}
	fromTime, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return TimelineFilters{}, validationError{field: "from", msg: "expected YYYY-MM-DD"}
	}
	if fromTime.After(toTime) {
		return TimelineFilters{}, validationError{field: "range", msg: "from must not be after to"}
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return TimelineFilters{}, validationError{field: "range", msg: "range exceeds 90 days"}
	}

	var actorID int64
	if v := strings.TrimSpace(q.Get("actor")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, validationError{field: "actor", msg: "must be a positive user id"}
		}
		actorID = parsed
	}
	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, validationError{field: "page", msg: "must be a positive number"}
		}
		if parsed > maxPage {
			return TimelineFilters{}, validationError{field: "page", msg: "must not exceed " + strconv.Itoa(maxPage)}
		}
		page = parsed
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, validationError{field: "page_size", msg: "must be a positive number"}
		}
		pageSize = min(parsed, maxPageSize)
	}

	return TimelineFilters{
		From:     fromTime,
		To:       toTime,
		ActorID:  actorID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		httpx.ValidationProblem(w, map[string]string{v.field: v.msg})
		return
	}
	h.logger.Error("validate filters", slog.Any("error", err))
	httpx.RespondError(w, err)
}

type validationError struct {
	field string
	msg   string
}

func (validationError) Error() string {
	return "validation failed"
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
