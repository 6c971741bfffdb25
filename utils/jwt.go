package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "qrmenu"

// Token purposes. Access tokens authenticate API calls; the others are
// short-lived links delivered by email.
const (
	PurposeAccess  = "access"
	PurposeConfirm = "confirm"
	PurposeLogin   = "login"
)

var (
	jwtSecret = []byte("dev-secret-change-me")
	accessTTL = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// ConfigureJWT sets the signing secret and access token lifetime.
func ConfigureJWT(secret string, ttl time.Duration) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if ttl > 0 {
		accessTTL = ttl
	}
}

// AccessTTL is how long access tokens stay valid.
func AccessTTL() time.Duration {
	return accessTTL
}

type CustomClaims struct {
	UserID  uint   `json:"user_id"`
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateToken issues an access token for the user.
func GenerateToken(userID uint, role string) (string, error) {
	return GeneratePurposeToken(userID, role, PurposeAccess, accessTTL)
}

func GeneratePurposeToken(userID uint, role, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		ErrorLogger.Printf("Error generating token: %v", err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken validates an access token.
func ParseToken(tokenString string) (*CustomClaims, error) {
	return ParsePurposeToken(tokenString, PurposeAccess)
}

func ParsePurposeToken(tokenString, purpose string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.Purpose != purpose || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
