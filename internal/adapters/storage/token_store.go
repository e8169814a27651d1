package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
)

// oauthTokenRowID единственная строка с учетными данными Google
const oauthTokenRowID = 1

// TokenStorage хранит токены OAuth Google в PostgreSQL
type TokenStorage struct {
	db DB
}

// NewTokenStorage создает хранилище токенов
func NewTokenStorage(db DB) *TokenStorage {
	return &TokenStorage{db: db}
}

// LoadToken возвращает сохраненный токен или nil, если авторизация еще не проводилась
func (s *TokenStorage) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	var (
		token  oauth2.Token
		expiry *time.Time
	)

	err := s.db.QueryRow(ctx, `
		SELECT access_token, refresh_token, token_type, expiry
		FROM google_shopping.oauth_tokens
		WHERE id = $1
	`, oauthTokenRowID).Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load oauth token: %w", err)
	}

	if expiry != nil {
		token.Expiry = *expiry
	}
	return &token, nil
}

// SaveToken сохраняет токен. Пустой refresh token в новом токене не затирает сохраненный.
func (s *TokenStorage) SaveToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return errors.New("token is nil")
	}

	var expiry *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiry = &e
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO google_shopping.oauth_tokens (id, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), google_shopping.oauth_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			updated_at = NOW()
	`, oauthTokenRowID, token.AccessToken, token.RefreshToken, token.TokenType, expiry)
	if err != nil {
		return fmt.Errorf("failed to save oauth token: %w", err)
	}
	return nil
}
