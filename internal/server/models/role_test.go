package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "volunteer", want: RoleVolunteer},
		{in: "NGO", want: RoleNGO},
		{in: " Volunteer ", want: RoleVolunteer},
		{in: "admin", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorContains(t, err, "want one of [volunteer ngo]")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("Volunteer").Valid())
	assert.False(t, Role("").Valid())
}

func TestPrincipalJSONHidesPasswordHash(t *testing.T) {
	p := Principal{ID: "u1", Email: "a@b.com", Name: "A", PasswordHash: "$argon2id$...", Role: RoleVolunteer}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "argon2id")
	assert.Contains(t, string(b), `"userType":"volunteer"`)
}
