package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPurposes(t *testing.T) {
	InitLogger()

	access, err := GenerateToken(7, "owner")
	require.NoError(t, err)
	claims, err := ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "owner", claims.Role)

	confirm, err := GeneratePurposeToken(7, "owner", PurposeConfirm, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(confirm)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParsePurposeToken(confirm, PurposeConfirm)
	assert.NoError(t, err)
}

func TestExpiredToken(t *testing.T) {
	InitLogger()

	token, err := GeneratePurposeToken(7, "owner", PurposeLogin, -time.Minute)
	require.NoError(t, err)
	_, err = ParsePurposeToken(token, PurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsForeignSigningMethod(t *testing.T) {
	claims := &CustomClaims{UserID: 7, Purpose: PurposeAccess}
	claims.Issuer = issuer
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
