package users

import (
	"github.com/pawnshop/backoffice/internal/permissions"
)

// Draft is the client-held editing state posted back on every draft call.
type Draft struct {
	RoleID            *int64                        `json:"role_id" validate:"omitempty,gt=0"`
	CustomPermissions permissions.CustomPermissions `json:"custom_permissions"`
}

// SelectRoleRequest picks a role for a draft.
type SelectRoleRequest struct {
	Draft  Draft `json:"draft"`
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

// ToggleRequest sets the desired state of one permission in a draft.
type ToggleRequest struct {
	Draft        Draft  `json:"draft"`
	PermissionID string `json:"permission_id" validate:"required,max=100"`
	Enabled      *bool  `json:"enabled" validate:"required"`
}

// ModuleView groups resolved rows of one module.
type ModuleView struct {
	Module      string                            `json:"module"`
	Label       string                            `json:"label"`
	Permissions []permissions.EffectivePermission `json:"permissions"`
}

// EditorView is the editing state rendered for the client.
type EditorView struct {
	UserID            int64                         `json:"user_id,omitempty"`
	State             string                        `json:"state"`
	RoleID            *int64                        `json:"role_id"`
	CustomPermissions permissions.CustomPermissions `json:"custom_permissions"`
	Conflicts         []string                      `json:"conflicts,omitempty"`
	Modules           []ModuleView                  `json:"modules"`
	Effective         []string                      `json:"effective"`
	Summary           permissions.Summary           `json:"summary"`
}

func editorView(userID int64, session *permissions.EditSession) EditorView {
	overrides := session.Overrides()
	view := EditorView{
		UserID: userID,
		State:  session.State().String(),
		CustomPermissions: permissions.CustomPermissions{
			Granted: nonNil(overrides.Granted()),
			Revoked: nonNil(overrides.Revoked()),
		},
		Conflicts: overrides.Overlap(),
		Effective: nonNil(session.EffectiveIDs()),
	}
	if baseline := session.Baseline(); baseline != nil {
		id := baseline.RoleID
		view.RoleID = &id
	}
	rows := session.Preview()
	view.Summary = permissions.Summarize(rows)
	view.Modules = []ModuleView{}
	for _, row := range rows {
		n := len(view.Modules)
		if n == 0 || view.Modules[n-1].Module != row.Module {
			view.Modules = append(view.Modules, ModuleView{Module: row.Module, Label: permissions.ModuleLabel(row.Module)})
			n++
		}
		view.Modules[n-1].Permissions = append(view.Modules[n-1].Permissions, row)
	}
	return view
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
