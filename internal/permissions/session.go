package permissions

import "fmt"

// SessionState is the lifecycle position of an EditSession.
type SessionState int

const (
	// StateNoRoleSelected is the initial state of a new user form.
	StateNoRoleSelected SessionState = iota
	// StateRoleSelected means a role baseline is attached; overrides may be present.
	StateRoleSelected
	// StateSaved is terminal: the payload was committed by the caller.
	StateSaved
	// StateDiscarded is terminal: the form was closed without saving.
	StateDiscarded
)

func (s SessionState) String() string {
	switch s {
	case StateNoRoleSelected:
		return "no_role_selected"
	case StateRoleSelected:
		return "role_selected"
	case StateSaved:
		return "saved"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EditSession is the in-memory editing state of one user's permissions. It is
// owned by a single form and is not safe for concurrent use.
type EditSession struct {
	catalog   *Catalog
	baseline  *RoleBaseline
	overrides OverrideSet
	state     SessionState
}

// NewSession opens a session for a user without a role.
func NewSession(catalog *Catalog) *EditSession {
	return &EditSession{catalog: catalog, state: StateNoRoleSelected}
}

// ResumeSession opens a session seeded with a user's stored role and overrides.
// A nil baseline keeps the session in StateNoRoleSelected.
func ResumeSession(catalog *Catalog, baseline *RoleBaseline, overrides OverrideSet) *EditSession {
	s := &EditSession{catalog: catalog, baseline: baseline, overrides: overrides, state: StateNoRoleSelected}
	if baseline != nil {
		s.state = StateRoleSelected
	}
	return s
}

// State returns the current lifecycle state.
func (s *EditSession) State() SessionState { return s.state }

// Catalog returns the catalog snapshot of the session.
func (s *EditSession) Catalog() *Catalog { return s.catalog }

// Baseline returns the selected role baseline, nil when no role is selected.
func (s *EditSession) Baseline() *RoleBaseline { return s.baseline }

// Overrides returns the current override set.
func (s *EditSession) Overrides() OverrideSet { return s.overrides }

// SelectRole attaches baseline and clears every override, including when the
// same role is selected again.
func (s *EditSession) SelectRole(baseline *RoleBaseline) error {
	if s.closed() {
		return ErrSessionClosed
	}
	if baseline == nil {
		return ErrNoRoleSelected
	}
	s.baseline = baseline
	s.overrides = OnRoleChanged(baseline)
	s.state = StateRoleSelected
	return nil
}

// Toggle records the desired state of a catalog permission.
func (s *EditSession) Toggle(id string, enabled bool) error {
	if s.closed() {
		return ErrSessionClosed
	}
	p, ok := s.catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPermission, id)
	}
	s.overrides = Toggle(p.ID, enabled, s.baseline, s.overrides)
	return nil
}

// Preview resolves every catalog permission for the live preview list.
func (s *EditSession) Preview() []EffectivePermission {
	return ResolveAll(s.catalog, s.baseline, s.overrides)
}

// EffectiveIDs returns the enabled catalog ids.
func (s *EditSession) EffectiveIDs() []string {
	return EffectiveIDs(s.catalog, s.baseline, s.overrides)
}

// Payload returns the role assignment and overrides to persist.
func (s *EditSession) Payload() (SavePayload, error) {
	if s.baseline == nil {
		return SavePayload{}, ErrNoRoleSelected
	}
	return PayloadFor(s.baseline.RoleID, s.overrides), nil
}

// MarkSaved moves the session into StateSaved once the caller committed Payload.
func (s *EditSession) MarkSaved() error {
	if s.closed() {
		return ErrSessionClosed
	}
	if s.baseline == nil {
		return ErrNoRoleSelected
	}
	s.state = StateSaved
	return nil
}

// Discard abandons the session. Nothing was persisted, so nothing is undone.
func (s *EditSession) Discard() {
	if s.closed() {
		return
	}
	s.overrides = OverrideSet{}
	s.state = StateDiscarded
}

func (s *EditSession) closed() bool {
	return s.state == StateSaved || s.state == StateDiscarded
}
