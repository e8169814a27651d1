package interfaces

import (
	"context"
)

// Principal аутентифицированный пользователь админки
type Principal struct {
	UserID   string
	Username string
	Email    string
	Roles    []string
}

// HasRole проверяет наличие роли у пользователя
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole проверяет наличие хотя бы одной роли из списка
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// AuthPort проверяет bearer-токены запросов админки
type AuthPort interface {
	// ValidateToken проверяет токен и возвращает пользователя
	ValidateToken(ctx context.Context, token string) (*Principal, error)
}
