package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawnshop/backoffice/internal/observability"
	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/rbac"
	"github.com/pawnshop/backoffice/internal/shared"
)

func findRow(t *testing.T, view EditorView, id string) permissions.EffectivePermission {
	t.Helper()
	for _, m := range view.Modules {
		for _, row := range m.Permissions {
			if row.ID == id {
				return row
			}
		}
	}
	t.Fatalf("permission %s not in view", id)
	return permissions.EffectivePermission{}
}

func TestOpenEditorSeedsFromStoredAssignment(t *testing.T) {
	perms := newStubPerms()
	perms.assignments[7] = rbac.Assignment{
		UserID:  7,
		RoleID:  roleRef(1),
		Granted: []string{"reports.view", "legacy.print"},
		Revoked: []string{"pledge.create"},
	}
	svc := newTestService(newStubRepo(), perms)

	view, err := svc.OpenEditor(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "role_selected", view.State)
	assert.Equal(t, int64(1), *view.RoleID)
	assert.Equal(t, []string{"legacy.print", "reports.view"}, view.CustomPermissions.Granted)
	assert.Equal(t, []string{"pledge.view", "reports.view"}, view.Effective)
	require.Len(t, view.Modules, 2)
	assert.Equal(t, "Pledge", view.Modules[0].Label)
	assert.Equal(t, permissions.ProvenanceRevoked, findRow(t, view, "pledge.create").Provenance)
	assert.Equal(t, permissions.ProvenanceCustomGranted, findRow(t, view, "reports.view").Provenance)
	assert.Equal(t, 2, view.Summary.Enabled)
}

func TestOpenEditorWithoutRoleOrDanglingRole(t *testing.T) {
	perms := newStubPerms()
	perms.assignments[7] = rbac.Assignment{UserID: 7}
	perms.assignments[8] = rbac.Assignment{UserID: 8, RoleID: roleRef(99), Granted: []string{"pledge.view"}}
	svc := newTestService(newStubRepo(), perms)

	view, err := svc.OpenEditor(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "no_role_selected", view.State)
	assert.Nil(t, view.RoleID)
	assert.Empty(t, view.Effective)

	view, err = svc.OpenEditor(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "no_role_selected", view.State)
	assert.Equal(t, []string{"pledge.view"}, view.Effective)

	_, err = svc.OpenEditor(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenEditorReportsStoredOverlap(t *testing.T) {
	perms := newStubPerms()
	perms.assignments[7] = rbac.Assignment{UserID: 7, RoleID: roleRef(2), Granted: []string{"reports.export"}, Revoked: []string{"reports.export"}}
	svc := newTestService(newStubRepo(), perms)

	view, err := svc.OpenEditor(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.export"}, view.Conflicts)
	assert.False(t, findRow(t, view, "reports.export").Enabled)
}

func TestNewDraftStartsWithNothingEnabled(t *testing.T) {
	svc := newTestService(newStubRepo(), newStubPerms())

	view, err := svc.NewDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no_role_selected", view.State)
	assert.Empty(t, view.Effective)
	assert.Equal(t, 5, view.Summary.Total)
	assert.Equal(t, []string{}, view.CustomPermissions.Granted)
}

func TestDraftWalkthrough(t *testing.T) {
	svc := newTestService(newStubRepo(), newStubPerms())
	ctx := context.Background()

	view, err := svc.SelectRole(ctx, SelectRoleRequest{RoleID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"pledge.create", "pledge.view"}, view.Effective)

	draft := Draft{RoleID: view.RoleID, CustomPermissions: view.CustomPermissions}
	view, err = svc.Toggle(ctx, ToggleRequest{Draft: draft, PermissionID: "pledge.create", Enabled: boolRef(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"pledge.create"}, view.CustomPermissions.Revoked)

	draft = Draft{RoleID: view.RoleID, CustomPermissions: view.CustomPermissions}
	view, err = svc.Toggle(ctx, ToggleRequest{Draft: draft, PermissionID: "reports.export", Enabled: boolRef(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.export"}, view.CustomPermissions.Granted)
	assert.Equal(t, []string{"pledge.view", "reports.export"}, view.Effective)

	draft = Draft{RoleID: view.RoleID, CustomPermissions: view.CustomPermissions}
	view, err = svc.Toggle(ctx, ToggleRequest{Draft: draft, PermissionID: "pledge.create", Enabled: boolRef(true)})
	require.NoError(t, err)
	assert.Empty(t, view.CustomPermissions.Revoked)

	draft = Draft{RoleID: view.RoleID, CustomPermissions: view.CustomPermissions}
	view, err = svc.SelectRole(ctx, SelectRoleRequest{Draft: draft, RoleID: 1})
	require.NoError(t, err)
	assert.Empty(t, view.CustomPermissions.Granted)
	assert.Empty(t, view.CustomPermissions.Revoked)
}

func TestDraftToggleBeforeRoleGrants(t *testing.T) {
	svc := newTestService(newStubRepo(), newStubPerms())

	view, err := svc.Toggle(context.Background(), ToggleRequest{PermissionID: "reports.view", Enabled: boolRef(true)})
	require.NoError(t, err)
	assert.Equal(t, "no_role_selected", view.State)
	assert.Equal(t, []string{"reports.view"}, view.CustomPermissions.Granted)
}

func TestDraftValidation(t *testing.T) {
	svc := newTestService(newStubRepo(), newStubPerms())
	ctx := context.Background()

	_, err := svc.Toggle(ctx, ToggleRequest{PermissionID: "vault.open", Enabled: boolRef(true)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unknown permission", verr.Fields["permission_id"])

	_, err = svc.Toggle(ctx, ToggleRequest{PermissionID: "pledge.view"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["enabled"])

	_, err = svc.SelectRole(ctx, SelectRoleRequest{RoleID: 42})
	assert.ErrorIs(t, err, ErrRoleNotFound)

	_, err = svc.SelectRole(ctx, SelectRoleRequest{Draft: Draft{RoleID: roleRef(42)}, RoleID: 1})
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestSavePermissionsPersistsChange(t *testing.T) {
	repo := newStubRepo()
	obs := countingObserver{}
	svc := newTestService(repo, newStubPerms()).WithObserver(obs)

	payload := permissions.SavePayload{
		RoleID: 1,
		CustomPermissions: permissions.CustomPermissions{
			Granted: []string{"reports.export", "legacy.print"},
			Revoked: []string{"pledge.create"},
		},
	}
	result, err := svc.SavePermissions(context.Background(), shared.Actor{UserID: 1}, 7, payload, " key-1 ")
	require.NoError(t, err)

	require.Len(t, repo.changes, 1)
	change := repo.changes[0]
	assert.Equal(t, "change-1", change.ChangeID)
	assert.Equal(t, int64(1), change.ActorID)
	assert.Equal(t, int64(7), change.UserID)
	assert.Equal(t, int64(1), change.RoleID)
	assert.Equal(t, []string{"legacy.print", "reports.export"}, change.Granted)
	assert.Equal(t, []string{"pledge.create"}, change.Revoked)
	assert.Equal(t, "key-1", change.IdempotencyKey)

	assert.Equal(t, "change-1", result.ChangeID)
	assert.Equal(t, []string{"legacy.print"}, result.Unknown)
	assert.Equal(t, []string{"pledge.view", "reports.export"}, result.Effective)
	assert.Equal(t, 1, obs[observability.SaveResultOK])
}

func TestSavePermissionsRejections(t *testing.T) {
	repo := newStubRepo()
	obs := countingObserver{}
	svc := newTestService(repo, newStubPerms()).WithObserver(obs)
	ctx := context.Background()
	actor := shared.Actor{UserID: 1}

	_, err := svc.SavePermissions(ctx, actor, 7, permissions.SavePayload{}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["role_id"])

	_, err = svc.SavePermissions(ctx, actor, 7, permissions.SavePayload{
		RoleID:            1,
		CustomPermissions: permissions.CustomPermissions{Granted: []string{""}},
	}, "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "custom_permissions.granted[0]")

	_, err = svc.SavePermissions(ctx, actor, 7, permissions.SavePayload{
		RoleID:            1,
		CustomPermissions: permissions.CustomPermissions{Granted: []string{"reports.view"}, Revoked: []string{"Reports.View"}},
	}, "")
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = svc.SavePermissions(ctx, actor, 7, permissions.SavePayload{RoleID: 42}, "")
	assert.ErrorIs(t, err, ErrRoleNotFound)

	_, err = svc.SavePermissions(ctx, actor, 404, permissions.SavePayload{RoleID: 1}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, repo.changes)
	assert.Equal(t, 4, obs[observability.SaveResultInvalid])
	assert.Equal(t, 1, obs[observability.SaveResultConflict])
}

func TestSavePermissionsDuplicateAndStorageErrors(t *testing.T) {
	repo := newStubRepo()
	obs := countingObserver{}
	svc := newTestService(repo, newStubPerms()).WithObserver(obs)
	ctx := context.Background()
	payload := permissions.SavePayload{RoleID: 2}

	_, err := svc.SavePermissions(ctx, shared.Actor{UserID: 1}, 7, payload, "abc")
	require.NoError(t, err)
	_, err = svc.SavePermissions(ctx, shared.Actor{UserID: 1}, 7, payload, "abc")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	repo.saveErr = errors.New("connection reset")
	_, err = svc.SavePermissions(ctx, shared.Actor{UserID: 1}, 7, payload, "")
	assert.Error(t, err)

	assert.Equal(t, 1, obs[observability.SaveResultOK])
	assert.Equal(t, 1, obs[observability.SaveResultDuplicate])
	assert.Equal(t, 1, obs[observability.SaveResultError])
}

func TestSavePayloadNeverCarriesResolvedSet(t *testing.T) {
	svc := newTestService(newStubRepo(), newStubPerms())
	ctx := context.Background()

	view, err := svc.SelectRole(ctx, SelectRoleRequest{RoleID: 2})
	require.NoError(t, err)
	draft := Draft{RoleID: view.RoleID, CustomPermissions: view.CustomPermissions}
	view, err = svc.Toggle(ctx, ToggleRequest{Draft: draft, PermissionID: "reports.view", Enabled: boolRef(false)})
	require.NoError(t, err)

	payload := permissions.PayloadFor(*view.RoleID, view.CustomPermissions.Overrides())
	assert.Equal(t, []string{}, payload.CustomPermissions.Granted)
	assert.Equal(t, []string{"reports.view"}, payload.CustomPermissions.Revoked)
}

func TestSavePermissionsRepairsStoredOverlap(t *testing.T) {
	repo := newStubRepo()
	perms := newStubPerms()
	perms.assignments[7] = rbac.Assignment{UserID: 7, RoleID: roleRef(1), Granted: []string{"reports.export"}, Revoked: []string{"reports.export"}}
	svc := newTestService(repo, perms)
	ctx := context.Background()

	view, err := svc.OpenEditor(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []string{"reports.export"}, view.Conflicts)

	view, err = svc.Toggle(ctx, ToggleRequest{
		Draft:        Draft{RoleID: view.RoleID, CustomPermissions: view.CustomPermissions},
		PermissionID: "pledge.view",
		Enabled:      boolRef(false),
	})
	require.NoError(t, err)

	result, err := svc.SavePermissions(ctx, shared.Actor{UserID: 1}, 7, permissions.SavePayload{
		RoleID:            1,
		CustomPermissions: view.CustomPermissions,
	}, "")
	require.NoError(t, err)
	require.Len(t, repo.changes, 1)
	assert.Empty(t, repo.changes[0].Granted)
	assert.Equal(t, []string{"pledge.view", "reports.export"}, repo.changes[0].Revoked)
	assert.Equal(t, []string{"pledge.create"}, result.Effective)

	// An overlap on an id that was not already stored that way is still refused.
	_, err = svc.SavePermissions(ctx, shared.Actor{UserID: 1}, 7, permissions.SavePayload{
		RoleID: 1,
		CustomPermissions: permissions.CustomPermissions{
			Granted: []string{"reports.export", "reports.view"},
			Revoked: []string{"reports.export", "reports.view"},
		},
	}, "")
	require.ErrorIs(t, err, ErrOverlap)
	assert.Contains(t, err.Error(), "reports.view")
	assert.NotContains(t, err.Error(), "reports.export")
	assert.Len(t, repo.changes, 1)
}
