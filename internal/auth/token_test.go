package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServices(t *testing.T) map[string]TokenService {
	t.Helper()

	jwtSvc, err := NewJWTService(testTokenKey)
	require.NoError(t, err)
	pasetoSvc, err := NewPasetoService(testTokenKey)
	require.NoError(t, err)

	return map[string]TokenService{"jwt": jwtSvc, "paseto": pasetoSvc}
}

func TestTokenRoundtrip(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()

			token, err := svc.CreateToken(userID, "alice@example.com", true, time.Hour)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := svc.VerifyToken(token)
			require.NoError(t, err)
			assert.Equal(t, userID.String(), claims.UserID)
			assert.Equal(t, "alice@example.com", claims.Email)
			assert.True(t, claims.Verified)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
			assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
		})
	}
}

func TestTokenExpired(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken(uuid.New(), "alice@example.com", false, -time.Minute)
			require.NoError(t, err)

			_, err = svc.VerifyToken(token)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenTampered(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken(uuid.New(), "alice@example.com", false, time.Hour)
			require.NoError(t, err)

			tampered := token[:len(token)-2] + "xx"
			_, err = svc.VerifyToken(tampered)
			assert.ErrorIs(t, err, ErrInvalidToken)

			_, err = svc.VerifyToken("not-a-token")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenWrongKey(t *testing.T) {
	otherKey := []byte("ffffffffffffffffffffffffffffffff")

	jwtA, err := NewJWTService(testTokenKey)
	require.NoError(t, err)
	jwtB, err := NewJWTService(otherKey)
	require.NoError(t, err)

	token, err := jwtA.CreateToken(uuid.New(), "alice@example.com", false, time.Hour)
	require.NoError(t, err)

	_, err = jwtB.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceKeyLength(t *testing.T) {
	_, err := NewJWTService([]byte("short"))
	assert.Error(t, err)

	_, err = NewPasetoService([]byte("short"))
	assert.Error(t, err)
}

func TestJWTAcrossSchemes(t *testing.T) {
	// A token from one scheme must not verify under the other.
	svcs := tokenServices(t)

	token, err := svcs["jwt"].CreateToken(uuid.New(), "alice@example.com", false, time.Hour)
	require.NoError(t, err)

	_, err = svcs["paseto"].VerifyToken(token)
	assert.Error(t, err)
}
