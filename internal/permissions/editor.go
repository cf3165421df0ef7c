package permissions

// Toggle applies the user's intent for id and returns the updated override set.
// The input set is left untouched.
//
//	from role, enable   -> drop from revoked
//	from role, disable  -> add to revoked, drop from granted
//	not from role, enable  -> add to granted, drop from revoked
//	not from role, disable -> drop from granted
//
// After Toggle, id is never in both sets. Repeating a toggle with the same
// desired state yields the same set.
func Toggle(id string, desiredEnabled bool, baseline *RoleBaseline, overrides OverrideSet) OverrideSet {
	id = NormalizeID(id)
	if id == "" {
		return overrides
	}
	next := overrides
	if baseline.Has(id) {
		if desiredEnabled {
			next.revoked = next.revoked.without(id)
			return next
		}
		next.revoked = next.revoked.with(id)
		next.granted = next.granted.without(id)
		return next
	}
	if desiredEnabled {
		next.granted = next.granted.with(id)
		next.revoked = next.revoked.without(id)
		return next
	}
	next.granted = next.granted.without(id)
	return next
}

// OnRoleChanged returns the override set to use after the role assignment
// changes. Overrides are relative to one role, so they never survive a switch.
func OnRoleChanged(*RoleBaseline) OverrideSet {
	return OverrideSet{}
}
