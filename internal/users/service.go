package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pawnshop/backoffice/internal/observability"
	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/rbac"
	"github.com/pawnshop/backoffice/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	SavePermissions(ctx context.Context, change PermissionChange) error
}

// PermissionSource provides the catalog, role baselines and stored assignments.
type PermissionSource interface {
	Catalog(ctx context.Context) (*permissions.Catalog, error)
	RoleBaseline(ctx context.Context, roleID int64) (*permissions.RoleBaseline, error)
	UserAssignment(ctx context.Context, userID int64) (rbac.Assignment, error)
}

// SaveObserver records the outcome of permission saves.
type SaveObserver interface {
	PermissionSave(result string)
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	perms    PermissionSource
	validate *validator.Validate
	observer SaveObserver
	logger   *slog.Logger
	newID    func() string
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		repo:     repo,
		perms:    perms,
		validate: validate,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithObserver attaches a save observer.
func (s *Service) WithObserver(o SaveObserver) *Service {
	s.observer = o
	return s
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// OpenEditor seeds an editor from the user's stored role and overrides.
func (s *Service) OpenEditor(ctx context.Context, userID int64) (EditorView, error) {
	assignment, err := s.perms.UserAssignment(ctx, userID)
	if errors.Is(err, rbac.ErrNotFound) {
		return EditorView{}, ErrNotFound
	}
	if err != nil {
		return EditorView{}, err
	}
	catalog, err := s.perms.Catalog(ctx)
	if err != nil {
		return EditorView{}, err
	}
	var baseline *permissions.RoleBaseline
	if assignment.RoleID != nil {
		baseline, err = s.perms.RoleBaseline(ctx, *assignment.RoleID)
		switch {
		case errors.Is(err, rbac.ErrNotFound):
			s.logger.Warn("user references missing role", slog.Int64("user_id", userID), slog.Int64("role_id", *assignment.RoleID))
			baseline = nil
		case err != nil:
			return EditorView{}, err
		}
	}
	session := permissions.ResumeSession(catalog, baseline, assignment.Overrides())
	return editorView(userID, session), nil
}

// NewDraft returns the editing state of a user that has no role yet.
func (s *Service) NewDraft(ctx context.Context) (EditorView, error) {
	catalog, err := s.perms.Catalog(ctx)
	if err != nil {
		return EditorView{}, err
	}
	return editorView(0, permissions.NewSession(catalog)), nil
}

// SelectRole applies a role to a draft. Every override is cleared.
func (s *Service) SelectRole(ctx context.Context, req SelectRoleRequest) (EditorView, error) {
	if err := s.check(req); err != nil {
		return EditorView{}, err
	}
	session, err := s.resume(ctx, req.Draft)
	if err != nil {
		return EditorView{}, err
	}
	baseline, err := s.baseline(ctx, req.RoleID)
	if err != nil {
		return EditorView{}, err
	}
	if err := session.SelectRole(baseline); err != nil {
		return EditorView{}, err
	}
	return editorView(0, session), nil
}

// Toggle records the desired state of one permission in a draft.
func (s *Service) Toggle(ctx context.Context, req ToggleRequest) (EditorView, error) {
	if err := s.check(req); err != nil {
		return EditorView{}, err
	}
	session, err := s.resume(ctx, req.Draft)
	if err != nil {
		return EditorView{}, err
	}
	if err := session.Toggle(req.PermissionID, *req.Enabled); err != nil {
		if errors.Is(err, permissions.ErrUnknownPermission) {
			return EditorView{}, &ValidationError{Fields: map[string]string{"permission_id": "unknown permission"}}
		}
		return EditorView{}, err
	}
	return editorView(0, session), nil
}

// SavePermissions validates and persists a role assignment and its overrides.
// Ids missing from the catalog are stored as received.
func (s *Service) SavePermissions(ctx context.Context, actor shared.Actor, userID int64, payload permissions.SavePayload, idempotencyKey string) (result SaveResult, err error) {
	defer func() { s.observe(err) }()

	if err := s.check(payload); err != nil {
		return SaveResult{}, err
	}
	overrides := payload.CustomPermissions.Overrides()
	if overlap := overrides.Overlap(); len(overlap) > 0 {
		fresh, err := s.freshOverlap(ctx, userID, overlap)
		if err != nil {
			return SaveResult{}, err
		}
		if len(fresh) > 0 {
			return SaveResult{}, fmt.Errorf("%w: %s", ErrOverlap, strings.Join(fresh, ", "))
		}
		// Overlap carried over from stored data: revocation wins.
		overrides = overrides.WithoutOverlap()
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return SaveResult{}, err
	}
	baseline, err := s.baseline(ctx, payload.RoleID)
	if err != nil {
		return SaveResult{}, err
	}
	catalog, err := s.perms.Catalog(ctx)
	if err != nil {
		return SaveResult{}, err
	}

	change := PermissionChange{
		ChangeID:       s.newID(),
		ActorID:        actor.UserID,
		UserID:         userID,
		RoleID:         payload.RoleID,
		Granted:        overrides.Granted(),
		Revoked:        overrides.Revoked(),
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
	if err := s.repo.SavePermissions(ctx, change); err != nil {
		return SaveResult{}, err
	}

	result = SaveResult{
		ChangeID: change.ChangeID,
		UserID:   userID,
		RoleID:   payload.RoleID,
		CustomPermissions: permissions.CustomPermissions{
			Granted: nonNil(change.Granted),
			Revoked: nonNil(change.Revoked),
		},
		Unknown:   catalog.Unknown(slices.Concat(change.Granted, change.Revoked)),
		Effective: nonNil(permissions.EffectiveIDs(catalog, baseline, overrides)),
	}
	s.logger.Info("user permissions saved",
		slog.String("change_id", change.ChangeID),
		slog.Int64("actor_id", actor.UserID),
		slog.Int64("user_id", userID),
		slog.Int64("role_id", payload.RoleID),
		slog.Int("granted", len(change.Granted)),
		slog.Int("revoked", len(change.Revoked)),
	)
	return result, nil
}

// freshOverlap returns the overlapping ids that the user's stored assignment
// does not already hold in both lists.
func (s *Service) freshOverlap(ctx context.Context, userID int64, overlap []string) ([]string, error) {
	assignment, err := s.perms.UserAssignment(ctx, userID)
	if errors.Is(err, rbac.ErrNotFound) {
		return overlap, nil
	}
	if err != nil {
		return nil, err
	}
	stored := assignment.Overrides()
	return slices.DeleteFunc(slices.Clone(overlap), func(id string) bool {
		return stored.IsGranted(id) && stored.IsRevoked(id)
	}), nil
}

func (s *Service) resume(ctx context.Context, draft Draft) (*permissions.EditSession, error) {
	catalog, err := s.perms.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if draft.RoleID == nil {
		return permissions.ResumeSession(catalog, nil, draft.CustomPermissions.Overrides()), nil
	}
	baseline, err := s.baseline(ctx, *draft.RoleID)
	if err != nil {
		return nil, err
	}
	return permissions.ResumeSession(catalog, baseline, draft.CustomPermissions.Overrides()), nil
}

func (s *Service) baseline(ctx context.Context, roleID int64) (*permissions.RoleBaseline, error) {
	baseline, err := s.perms.RoleBaseline(ctx, roleID)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return baseline, err
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func (s *Service) observe(err error) {
	if s.observer == nil {
		return
	}
	switch {
	case err == nil:
		s.observer.PermissionSave(observability.SaveResultOK)
	case errors.Is(err, ErrDuplicateRequest):
		s.observer.PermissionSave(observability.SaveResultDuplicate)
	case errors.Is(err, ErrOverlap):
		s.observer.PermissionSave(observability.SaveResultConflict)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrRoleNotFound), errors.Is(err, ErrNotFound):
		s.observer.PermissionSave(observability.SaveResultInvalid)
	default:
		s.observer.PermissionSave(observability.SaveResultError)
	}
}
