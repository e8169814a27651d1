package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/patrickmn/go-cache"
)

// KeycloakConfig конфигурация для Keycloak
type KeycloakConfig struct {
	ServerURL string
	Realm     string
	ClientID  string
}

// KeycloakClaims представляет собой структуру claims из токена Keycloak
type KeycloakClaims struct {
	UserID      string `json:"sub"`
	Username    string `json:"preferred_username"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// KeycloakClient проверяет токены Keycloak
type KeycloakClient struct {
	verifier   *oidc.IDTokenVerifier
	tokenCache *cache.Cache
	clientID   string
}

// NewKeycloakClient загружает OIDC discovery документ realm'а
func NewKeycloakClient(ctx context.Context, cfg KeycloakConfig) (*KeycloakClient, error) {
	providerURL := fmt.Sprintf("%s/realms/%s", strings.TrimRight(cfg.ServerURL, "/"), cfg.Realm)

	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:        cfg.ClientID,
		SkipIssuerCheck: true,
	})

	return &KeycloakClient{
		verifier:   verifier,
		tokenCache: cache.New(5*time.Minute, 10*time.Minute),
		clientID:   cfg.ClientID,
	}, nil
}

// ValidateToken проверяет JWT токен; результат кэшируется до истечения токена
func (k *KeycloakClient) ValidateToken(ctx context.Context, tokenString string) (*interfaces.Principal, error) {
	if cached, found := k.tokenCache.Get(tokenString); found {
		return cached.(*interfaces.Principal), nil
	}

	idToken, err := k.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	var claims KeycloakClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}

	principal := k.principal(&claims)
	if expiresIn := time.Until(idToken.Expiry); expiresIn > 0 {
		k.tokenCache.Set(tokenString, principal, expiresIn)
	}

	return principal, nil
}

// principal объединяет роли realm и роли клиента
func (k *KeycloakClient) principal(claims *KeycloakClaims) *interfaces.Principal {
	roles := append([]string(nil), claims.RealmAccess.Roles...)
	if clientRoles, ok := claims.ResourceAccess[k.clientID]; ok {
		roles = append(roles, clientRoles.Roles...)
	}
	return &interfaces.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    roles,
	}
}
