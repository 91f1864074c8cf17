package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

func TestTokenVerifierRoundTrip(t *testing.T) {
	verifier := NewTokenVerifier(TokenConfig{Secret: "s3cret", Issuer: "facility-idp"})

	token, err := verifier.Issue(technicianActor, time.Hour)
	require.NoError(t, err)

	claims, err := verifier.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, technicianActor, claims.Actor())
}

func TestTokenVerifierRejects(t *testing.T) {
	verifier := NewTokenVerifier(TokenConfig{Secret: "s3cret", Issuer: "facility-idp"})

	wrongSecret, err := NewTokenVerifier(TokenConfig{Secret: "other", Issuer: "facility-idp"}).Issue(requesterActor, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := NewTokenVerifier(TokenConfig{Secret: "s3cret", Issuer: "elsewhere"}).Issue(requesterActor, time.Hour)
	require.NoError(t, err)
	expired, err := verifier.Issue(requesterActor, -time.Minute)
	require.NoError(t, err)
	noRole, err := verifier.Issue(models.Actor{ID: "user-1"}, time.Hour)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no role":      noRole,
		"hs512":        hs512,
	} {
		_, err := verifier.ValidateToken(token)
		assert.ErrorIs(t, err, appErrors.ErrUnauthorized, name)
	}
}
