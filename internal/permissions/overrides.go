package permissions

// OverrideSet holds the per-user exceptions layered on top of a role baseline.
// It is a value type: every edit produces a new OverrideSet and the zero value
// is an empty set.
//
// granted and revoked are kept disjoint by Toggle. Sets loaded from storage are
// taken as-is, overlap included, so that revocation still wins on resolution and
// the overlap is cleared the next time a toggle touches the id.
type OverrideSet struct {
	granted idSet
	revoked idSet
}

// NewOverrideSet seeds an override set from stored lists.
func NewOverrideSet(granted, revoked []string) OverrideSet {
	return OverrideSet{granted: newIDSet(granted...), revoked: newIDSet(revoked...)}
}

// IsGranted reports whether id is explicitly granted.
func (o OverrideSet) IsGranted(id string) bool {
	return o.granted.has(id)
}

// IsRevoked reports whether id is explicitly revoked.
func (o OverrideSet) IsRevoked(id string) bool {
	return o.revoked.has(id)
}

// Granted returns the granted ids, sorted.
func (o OverrideSet) Granted() []string {
	return o.granted.sorted()
}

// Revoked returns the revoked ids, sorted.
func (o OverrideSet) Revoked() []string {
	return o.revoked.sorted()
}

// IsEmpty reports whether no override is recorded.
func (o OverrideSet) IsEmpty() bool {
	return len(o.granted) == 0 && len(o.revoked) == 0
}

// Overlap returns the ids present in both sets, sorted. It is empty for every
// set produced by Toggle or OnRoleChanged.
func (o OverrideSet) Overlap() []string {
	both := make(idSet)
	for key, id := range o.granted {
		if o.revoked.has(id) {
			both[key] = id
		}
	}
	return both.sorted()
}

// Disjoint reports whether granted and revoked share no id.
func (o OverrideSet) Disjoint() bool {
	for _, id := range o.granted {
		if o.revoked.has(id) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same ids.
func (o OverrideSet) Equal(other OverrideSet) bool {
	return o.granted.equal(other.granted) && o.revoked.equal(other.revoked)
}

// WithoutOverlap applies revocation precedence to stored data: ids present in
// both sets are dropped from granted.
func (o OverrideSet) WithoutOverlap() OverrideSet {
	next := o
	for _, id := range o.Overlap() {
		next.granted = next.granted.without(id)
	}
	return next
}
