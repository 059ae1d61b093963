package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/domain"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	key := make([]byte, keyLength)
	_, err := rand.Read(key)
	require.NoError(t, err)

	svc, err := NewTokenService(key, 7*24*time.Hour)
	require.NoError(t, err)
	return svc
}

func testUser() *domain.User {
	return &domain.User{
		Syncable: domain.Syncable{ID: "user-123"},
		Name:     "Ana",
		Email:    "ana@example.com",
	}
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, expiresAt, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, SourcePaseto, claims.Source)
	assert.True(t, strings.HasPrefix(claims.TokenID, "token-"))
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokenService(t)

	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err = svc.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongKey(t *testing.T) {
	token, _, err := newTestTokenService(t).GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = newTestTokenService(t).VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticator_PasetoOnlyByDefault(t *testing.T) {
	svc := newTestTokenService(t)
	a := NewAuthenticator(svc)

	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)

	legacy := signHS256(t, "secret", jwt.MapClaims{"userId": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = a.Verify(legacy)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = a.Verify("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticator_LegacyJWT(t *testing.T) {
	a := NewAuthenticator(newTestTokenService(t), WithLegacySecret("legacy-secret"))

	tests := []struct {
		name    string
		token   string
		wantErr error
		wantID  string
	}{
		{
			name:   "userId claim",
			token:  signHS256(t, "legacy-secret", jwt.MapClaims{"userId": "user-1", "exp": time.Now().Add(time.Hour).Unix()}),
			wantID: "user-1",
		},
		{
			name:   "sub fallback",
			token:  signHS256(t, "legacy-secret", jwt.MapClaims{"sub": "user-2", "exp": time.Now().Add(time.Hour).Unix()}),
			wantID: "user-2",
		},
		{
			name:    "expired",
			token:   signHS256(t, "legacy-secret", jwt.MapClaims{"userId": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: ErrTokenExpired,
		},
		{
			name:    "wrong secret",
			token:   signHS256(t, "other-secret", jwt.MapClaims{"userId": "user-1"}),
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "no subject",
			token:   signHS256(t, "legacy-secret", jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
			wantErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := a.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, claims.UserID)
			assert.Equal(t, SourceLegacy, claims.Source)
		})
	}
}

func TestAuthenticator_JWKS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	b64 := base64.RawURLEncoding
	keySet := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   b64.EncodeToString(priv.N.Bytes()),
			"e":   b64.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
		}},
	}
	raw, err := json.Marshal(keySet)
	require.NoError(t, err)

	jwks, err := keyfunc.NewJSON(raw)
	require.NoError(t, err)

	a := NewAuthenticator(newTestTokenService(t), WithJWKS(jwks))

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   "user-ext",
		"email": "ext@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "test-key"
	signed, err := tok.SignedString(priv)
	require.NoError(t, err)

	claims, err := a.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-ext", claims.UserID)
	assert.Equal(t, "ext@example.com", claims.Email)
	assert.Equal(t, SourceJWKS, claims.Source)

	// HS256 is not accepted when only a JWKS is configured.
	_, err = a.Verify(signHS256(t, "secret", jwt.MapClaims{"sub": "user-ext"}))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestLoadOrGenerateKey_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("not-a-key"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestDecodeKey(t *testing.T) {
	key, err := DecodeKey(" " + strings.Repeat("ab", keyLength) + "\n")
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	_, err = DecodeKey(strings.Repeat("zz", keyLength))
	assert.Error(t, err)
}
