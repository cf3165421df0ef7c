package permissions

// Provenance explains why a permission ends up enabled or disabled.
type Provenance string

const (
	// ProvenanceNone marks a permission neither conferred by the role nor overridden.
	ProvenanceNone Provenance = "none"
	// ProvenanceFromRole marks a permission conferred by the role baseline.
	ProvenanceFromRole Provenance = "from_role"
	// ProvenanceCustomGranted marks a permission explicitly granted to the user.
	ProvenanceCustomGranted Provenance = "custom_granted"
	// ProvenanceRevoked marks a permission explicitly revoked for the user.
	ProvenanceRevoked Provenance = "revoked"
)

// EffectivePermission is the resolved state of one catalog permission.
// It is derived data and is never persisted.
type EffectivePermission struct {
	Permission
	Enabled    bool       `json:"enabled"`
	Provenance Provenance `json:"provenance"`
	// Redundant flags a grant of a permission the role already confers.
	Redundant bool `json:"redundant,omitempty"`
}

// Summary counts resolved rows for the "effective permissions" header.
type Summary struct {
	Total         int `json:"total"`
	Enabled       int `json:"enabled"`
	FromRole      int `json:"from_role"`
	CustomGranted int `json:"custom_granted"`
	Revoked       int `json:"revoked"`
}

// IsEnabled reports whether id is effective for a user holding baseline and
// overrides. Revocation wins over both the role and an explicit grant.
func IsEnabled(id string, baseline *RoleBaseline, overrides OverrideSet) bool {
	id = NormalizeID(id)
	if overrides.revoked.has(id) {
		return false
	}
	return baseline.Has(id) || overrides.granted.has(id)
}

// ProvenanceOf returns the single provenance tag of id.
func ProvenanceOf(id string, baseline *RoleBaseline, overrides OverrideSet) Provenance {
	id = NormalizeID(id)
	switch {
	case overrides.revoked.has(id):
		return ProvenanceRevoked
	case overrides.granted.has(id):
		return ProvenanceCustomGranted
	case baseline.Has(id):
		return ProvenanceFromRole
	default:
		return ProvenanceNone
	}
}

// ResolveAll resolves every catalog permission in catalog order. Override ids
// missing from the catalog produce no row.
func ResolveAll(catalog *Catalog, baseline *RoleBaseline, overrides OverrideSet) []EffectivePermission {
	perms := catalog.Permissions()
	rows := make([]EffectivePermission, 0, len(perms))
	for _, p := range perms {
		prov := ProvenanceOf(p.ID, baseline, overrides)
		rows = append(rows, EffectivePermission{
			Permission: p,
			Enabled:    prov == ProvenanceFromRole || prov == ProvenanceCustomGranted,
			Provenance: prov,
			Redundant:  prov == ProvenanceCustomGranted && baseline.Has(p.ID),
		})
	}
	return rows
}

// EffectiveIDs returns the enabled catalog ids in catalog order.
func EffectiveIDs(catalog *Catalog, baseline *RoleBaseline, overrides OverrideSet) []string {
	var ids []string
	for _, p := range catalog.Permissions() {
		if IsEnabled(p.ID, baseline, overrides) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Summarize counts rows per provenance.
func Summarize(rows []EffectivePermission) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		if r.Enabled {
			s.Enabled++
		}
		switch r.Provenance {
		case ProvenanceFromRole:
			s.FromRole++
		case ProvenanceCustomGranted:
			s.CustomGranted++
		case ProvenanceRevoked:
			s.Revoked++
		}
	}
	return s
}
