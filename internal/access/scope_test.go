package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeFilter_AdminKeepsBase(t *testing.T) {
	base := Eq("status", "ACTIVE")
	got := ScopeFilter(&Principal{ID: 1, Role: RoleAdmin}, base)
	assert.Equal(t, base, got)
}

func TestScopeFilter_NonAdminAddsOwner(t *testing.T) {
	for _, role := range []Role{RoleManager, RoleUser} {
		base := Eq("id", uint(42))
		got := ScopeFilter(&Principal{ID: 7, Role: role}, base)

		assert.Equal(t, Filter{
			{Column: "id", Value: uint(42)},
			{Column: OwnerColumn, Value: uint(7)},
		}, got)
		assert.Len(t, base, 1, "base must not be mutated")
	}
}

func TestScopeFilter_AnonymousMatchesNothing(t *testing.T) {
	got := ScopeFilter(nil, nil)
	assert.Equal(t, Filter{{Column: OwnerColumn, Value: uint(0)}}, got)
}

func TestFilterHas(t *testing.T) {
	f := Eq("a", 1).And(Eq("b", 2))
	assert.True(t, f.Has("b"))
	assert.False(t, f.Has("c"))
}
