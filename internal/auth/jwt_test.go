package auth

import (
	"testing"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(secret, time.Hour, &models.User{ID: 7, Email: "a@b.c", Role: access.RoleManager})
	require.NoError(t, err)

	p, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, &access.Principal{ID: 7, Role: access.RoleManager}, p)
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken(secret, time.Hour, &models.User{ID: 7, Role: access.RoleUser})
	require.NoError(t, err)
	expired, err := GenerateToken(secret, -time.Minute, &models.User{ID: 7, Role: access.RoleUser})
	require.NoError(t, err)
	badRole, err := GenerateToken(secret, time.Hour, &models.User{ID: 7, Role: "OWNER"})
	require.NoError(t, err)

	cases := map[string]struct{ secret, token string }{
		"wrong secret": {"another-secret-another-secret-xx", valid},
		"expired":      {secret, expired},
		"unknown role": {secret, badRole},
		"garbage":      {secret, "not.a.jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
