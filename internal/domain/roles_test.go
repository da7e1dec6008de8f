package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"ADMIN":        RoleAdmin,
		"admin":        RoleAdmin,
		"ROLE_AGENT":   RoleAgent,
		"MASTER_ADMIN": RoleSuperAdmin,
		" guest ":      RoleGuest,
	}
	for in, want := range cases {
		got, ok := ParseRole(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseRole("JANITOR")
	assert.False(t, ok)
}

func TestParseRoles_DropsUnknownAndDuplicates(t *testing.T) {
	got := ParseRoles([]string{"DEVELOPER", "JANITOR", "developer", "ADMIN"})
	assert.Equal(t, []Role{RoleDeveloper, RoleAdmin}, got)
}

func TestIdentity_JSONRoundTripKeepsKnownRoles(t *testing.T) {
	var id Identity
	err := json.Unmarshal([]byte(`{"id":"7","name":"Ana","email":"ana@example.com","roles":["AGENT","PILOT"]}`), &id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", id.DisplayName)
	assert.Equal(t, []Role{RoleAgent}, id.Roles)

	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"roles":["AGENT"]`)
}

func TestIdentity_EffectiveRolesDefaultsToUser(t *testing.T) {
	assert.Equal(t, []Role{RoleUser}, Identity{}.EffectiveRoles())
	assert.Equal(t, []Role{RoleUser}, Identity{Roles: []Role{Role(99)}}.EffectiveRoles())
	assert.Equal(t, []Role{RoleAgent}, Identity{Roles: []Role{Role(-1), RoleAgent}}.EffectiveRoles())
	assert.True(t, Identity{}.HasAnyRole(RoleUser))
	assert.False(t, Identity{Roles: []Role{RoleGuest}}.HasAnyRole(RoleUser, RoleAdmin))
}

func TestValidationError_UnwrapsToInvalidInput(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"password": "required", "email": "email"}}
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: email, password", err.Error())
}
