package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keycloakStub отдает discovery документ и JWKS одного realm
type keycloakStub struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	issuer string
}

func newKeycloakStub(t *testing.T) *keycloakStub {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	stub := &keycloakStub{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/shop/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                stub.issuer,
			"authorization_endpoint":                stub.issuer + "/protocol/openid-connect/auth",
			"token_endpoint":                        stub.issuer + "/protocol/openid-connect/token",
			"jwks_uri":                              stub.issuer + "/protocol/openid-connect/certs",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/realms/shop/protocol/openid-connect/certs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "test-key",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})

	stub.server = httptest.NewServer(mux)
	stub.issuer = stub.server.URL + "/realms/shop"
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *keycloakStub) token(t *testing.T, audience string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":                s.issuer,
		"aud":                audience,
		"sub":                "user-1",
		"preferred_username": "merchandiser",
		"email":              "m@example.com",
		"exp":                time.Now().Add(expiresIn).Unix(),
		"iat":                time.Now().Unix(),
		"realm_access":       map[string]any{"roles": []string{"offline_access"}},
		"resource_access": map[string]any{
			"feed-admin": map[string]any{"roles": []string{"feed-editor"}},
			"other":      map[string]any{"roles": []string{"ignored"}},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func TestKeycloakClient_ValidateToken(t *testing.T) {
	stub := newKeycloakStub(t)
	ctx := context.Background()

	client, err := NewKeycloakClient(ctx, KeycloakConfig{ServerURL: stub.server.URL + "/", Realm: "shop", ClientID: "feed-admin"})
	require.NoError(t, err)

	token := stub.token(t, "feed-admin", time.Hour)
	principal, err := client.ValidateToken(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", principal.UserID)
	assert.Equal(t, "merchandiser", principal.Username)
	assert.ElementsMatch(t, []string{"offline_access", "feed-editor"}, principal.Roles)

	cached, err := client.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Same(t, principal, cached, "second validation is served from the cache")
}

func TestKeycloakClient_RejectsInvalidTokens(t *testing.T) {
	stub := newKeycloakStub(t)
	ctx := context.Background()

	client, err := NewKeycloakClient(ctx, KeycloakConfig{ServerURL: stub.server.URL, Realm: "shop", ClientID: "feed-admin"})
	require.NoError(t, err)

	_, err = client.ValidateToken(ctx, stub.token(t, "another-client", time.Hour))
	assert.Error(t, err, "audience mismatch")

	_, err = client.ValidateToken(ctx, stub.token(t, "feed-admin", -time.Minute))
	assert.Error(t, err, "expired")

	_, err = client.ValidateToken(ctx, "not.a.jwt")
	assert.Error(t, err)
}

func TestNewKeycloakClient_UnknownRealm(t *testing.T) {
	stub := newKeycloakStub(t)
	_, err := NewKeycloakClient(context.Background(), KeycloakConfig{ServerURL: stub.server.URL, Realm: "missing", ClientID: "feed-admin"})
	assert.Error(t, err)
}
