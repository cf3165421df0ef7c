package permissions

// CustomPermissions is the wire shape of an override set.
type CustomPermissions struct {
	Granted []string `json:"granted" validate:"dive,required,max=100"`
	Revoked []string `json:"revoked" validate:"dive,required,max=100"`
}

// SavePayload carries a role assignment plus its overrides. The resolved
// permissions are deliberately absent: they are recomputed from these inputs.
type SavePayload struct {
	RoleID            int64             `json:"role_id" validate:"required,gt=0"`
	CustomPermissions CustomPermissions `json:"custom_permissions"`
}

// PayloadFor builds the save payload of roleID and overrides.
func PayloadFor(roleID int64, overrides OverrideSet) SavePayload {
	return SavePayload{
		RoleID: roleID,
		CustomPermissions: CustomPermissions{
			Granted: nonNil(overrides.Granted()),
			Revoked: nonNil(overrides.Revoked()),
		},
	}
}

// Overrides converts the wire lists back into an OverrideSet.
func (c CustomPermissions) Overrides() OverrideSet {
	return NewOverrideSet(c.Granted, c.Revoked)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
