package access

import (
	"errors"
	"fmt"
	"testing"

	"farm-backend/internal/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = ParseRole("owner")
	assert.Error(t, err)
}

func TestRequireAuthenticated(t *testing.T) {
	d := RequireAuthenticated(nil)
	assert.False(t, d.Authorized)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
	assert.Nil(t, d.Principal)

	p := &Principal{ID: 3, Role: RoleUser}
	d = RequireAuthenticated(p)
	assert.True(t, d.Authorized)
	assert.Same(t, p, d.Principal)
}

func TestRequireRole_AllCombinations(t *testing.T) {
	allowedSets := [][]Role{
		nil,
		{RoleAdmin},
		{RoleAdmin, RoleManager},
		{RoleUser},
		Roles,
	}

	for _, allowed := range allowedSets {
		t.Run(fmt.Sprintf("anonymous/%v", allowed), func(t *testing.T) {
			d := RequireRole(nil, allowed...)
			assert.False(t, d.Authorized)
			assert.Equal(t, ReasonUnauthenticated, d.Reason)
		})

		for _, role := range Roles {
			p := &Principal{ID: 1, Role: role}
			t.Run(fmt.Sprintf("%s/%v", role, allowed), func(t *testing.T) {
				d := RequireRole(p, allowed...)
				if hasRole(role, allowed) {
					assert.True(t, d.Authorized)
					assert.Same(t, p, d.Principal)
				} else {
					assert.False(t, d.Authorized)
					assert.Equal(t, ReasonInsufficientRole, d.Reason)
				}
			})
		}
	}
}

func TestRequireSelfOrRole(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		target    uint
		allowed   []Role
		want      bool
		reason    Reason
	}{
		{"anonymous", nil, 1, []Role{RoleAdmin}, false, ReasonUnauthenticated},
		{"self without role", &Principal{ID: 5, Role: RoleUser}, 5, []Role{RoleAdmin}, true, ""},
		{"other with role", &Principal{ID: 1, Role: RoleAdmin}, 5, []Role{RoleAdmin}, true, ""},
		{"self and role", &Principal{ID: 5, Role: RoleAdmin}, 5, []Role{RoleAdmin}, true, ""},
		{"other without role", &Principal{ID: 6, Role: RoleManager}, 5, []Role{RoleAdmin}, false, ReasonForbidden},
		{"no roles allowed, not self", &Principal{ID: 6, Role: RoleAdmin}, 5, nil, false, ReasonForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RequireSelfOrRole(tt.principal, tt.target, tt.allowed...)
			assert.Equal(t, tt.want, d.Authorized)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, allow(&Principal{ID: 1}).Err())

	cases := map[Reason]int{
		ReasonUnauthenticated:  401,
		ReasonInsufficientRole: 403,
		ReasonForbidden:        403,
	}
	for reason, status := range cases {
		var re *response.Error
		require.True(t, errors.As(deny(reason).Err(), &re))
		assert.Equal(t, status, re.Status, reason)
	}
}
