package permissions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(pawnCatalog())
	assert.Equal(t, StateNoRoleSelected, s.State())

	_, err := s.Payload()
	assert.ErrorIs(t, err, ErrNoRoleSelected)

	require.NoError(t, s.SelectRole(cashier()))
	assert.Equal(t, StateRoleSelected, s.State())

	require.NoError(t, s.Toggle("reports.export", true))
	require.NoError(t, s.Toggle("pledge.view", false))

	payload, err := s.Payload()
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.RoleID)
	assert.Equal(t, []string{"reports.export"}, payload.CustomPermissions.Granted)
	assert.Equal(t, []string{"pledge.view"}, payload.CustomPermissions.Revoked)

	require.NoError(t, s.SelectRole(manager()))
	assert.True(t, s.Overrides().IsEmpty())

	require.NoError(t, s.MarkSaved())
	assert.Equal(t, StateSaved, s.State())
	assert.ErrorIs(t, s.Toggle("pledge.view", true), ErrSessionClosed)
	assert.ErrorIs(t, s.SelectRole(cashier()), ErrSessionClosed)
}

func TestSessionReselectingSameRoleClears(t *testing.T) {
	s := ResumeSession(pawnCatalog(), cashier(), NewOverrideSet([]string{"user.view"}, nil))
	require.Equal(t, StateRoleSelected, s.State())

	require.NoError(t, s.SelectRole(cashier()))
	assert.True(t, s.Overrides().IsEmpty())
}

func TestSessionRejectsUnknownPermission(t *testing.T) {
	s := ResumeSession(pawnCatalog(), cashier(), OverrideSet{})
	err := s.Toggle("whatsapp.send", true)
	assert.ErrorIs(t, err, ErrUnknownPermission)
	assert.True(t, s.Overrides().IsEmpty())
}

func TestSessionKeepsIDsMissingFromCatalog(t *testing.T) {
	stored := NewOverrideSet([]string{"legacy.print", "reports.view"}, []string{"legacy.void"})
	s := ResumeSession(pawnCatalog(), cashier(), stored)

	require.NoError(t, s.Toggle("reports.view", false))
	payload, err := s.Payload()
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy.print"}, payload.CustomPermissions.Granted)
	assert.Equal(t, []string{"legacy.void"}, payload.CustomPermissions.Revoked)

	for _, row := range s.Preview() {
		assert.NotEqual(t, "legacy.print", row.ID)
	}
}

func TestSessionToggleWithoutRoleGrants(t *testing.T) {
	s := NewSession(pawnCatalog())
	require.NoError(t, s.Toggle("pledge.view", true))
	assert.Equal(t, []string{"pledge.view"}, s.EffectiveIDs())

	require.NoError(t, s.SelectRole(cashier()))
	assert.True(t, s.Overrides().IsEmpty())
	assert.Equal(t, []string{"pledge.create", "pledge.view"}, s.EffectiveIDs())
}

func TestSessionDiscard(t *testing.T) {
	s := ResumeSession(pawnCatalog(), cashier(), NewOverrideSet([]string{"user.view"}, nil))
	s.Discard()
	assert.Equal(t, StateDiscarded, s.State())
	assert.True(t, s.Overrides().IsEmpty())
	assert.ErrorIs(t, s.MarkSaved(), ErrSessionClosed)
	assert.Equal(t, "discarded", s.State().String())
}

func TestSavePayloadShape(t *testing.T) {
	raw, err := json.Marshal(PayloadFor(4, OverrideSet{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role_id":4,"custom_permissions":{"granted":[],"revoked":[]}}`, string(raw))

	var decoded SavePayload
	require.NoError(t, json.Unmarshal([]byte(`{"role_id":2,"custom_permissions":{"granted":["Reports.Export"],"revoked":["pledge.view"]}}`), &decoded))
	ov := decoded.CustomPermissions.Overrides()
	assert.True(t, ov.IsGranted("reports.export"))
	assert.True(t, ov.IsRevoked("pledge.view"))
}

func TestPayloadKeepsStoredSpelling(t *testing.T) {
	payload := PayloadFor(1, NewOverrideSet([]string{"Legacy.Feature"}, []string{" Pledge.View"}))
	assert.Equal(t, []string{"Legacy.Feature"}, payload.CustomPermissions.Granted)
	assert.Equal(t, []string{"Pledge.View"}, payload.CustomPermissions.Revoked)

	s := ResumeSession(NewCatalog([]Module{{Name: "pledge", Permissions: []Permission{{ID: "Pledge.Renew"}}}}), nil, OverrideSet{})
	require.NoError(t, s.Toggle("pledge.renew", true))
	assert.Equal(t, []string{"Pledge.Renew"}, s.Overrides().Granted())
}
