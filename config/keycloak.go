package config

import (
	"github.com/athebyme/gomarket-platform/feed-service/pkg/auth"
)

// KeycloakConfig представляет конфигурацию Keycloak для проверки токенов администраторов
type KeycloakConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerURL string `mapstructure:"server_url"`
	Realm     string `mapstructure:"realm"`
	ClientID  string `mapstructure:"client_id"`
}

// GetKeycloakConfig возвращает конфигурацию для auth.KeycloakClient
func (k *KeycloakConfig) GetKeycloakConfig() auth.KeycloakConfig {
	return auth.KeycloakConfig{
		ServerURL: k.ServerURL,
		Realm:     k.Realm,
		ClientID:  k.ClientID,
	}
}
