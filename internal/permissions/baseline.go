package permissions

// RolePermissionFlag is the inbound shape of one role permission as served by
// the role service. Only enabled entries contribute to the baseline.
type RolePermissionFlag struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// RoleBaseline is a read-only snapshot of the permissions a role confers.
// A nil *RoleBaseline stands for "no role selected".
type RoleBaseline struct {
	RoleID int64
	set    idSet
}

// NewRoleBaseline builds the baseline of roleID from the given ids.
func NewRoleBaseline(roleID int64, ids ...string) *RoleBaseline {
	return &RoleBaseline{RoleID: roleID, set: newIDSet(ids...)}
}

// BaselineFromFlags keeps the enabled entries of a role permission listing.
func BaselineFromFlags(roleID int64, flags []RolePermissionFlag) *RoleBaseline {
	ids := make([]string, 0, len(flags))
	for _, f := range flags {
		if f.Enabled {
			ids = append(ids, f.ID)
		}
	}
	return NewRoleBaseline(roleID, ids...)
}

// Has reports whether the role confers id.
func (b *RoleBaseline) Has(id string) bool {
	if b == nil {
		return false
	}
	return b.set.has(id)
}

// IDs returns the conferred ids, sorted.
func (b *RoleBaseline) IDs() []string {
	if b == nil {
		return nil
	}
	return b.set.sorted()
}

// Len returns the number of conferred permissions.
func (b *RoleBaseline) Len() int {
	if b == nil {
		return 0
	}
	return len(b.set)
}
