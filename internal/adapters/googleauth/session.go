package googleauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// ContentScope scope доступа к Content API for Shopping
const ContentScope = "https://www.googleapis.com/auth/content"

// ErrNoRefreshToken возвращается при попытке обновления без refresh token
var ErrNoRefreshToken = errors.New("no refresh token; interactive OAuth authentication required")

// Config настройки OAuth-клиента Google
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// TokenLoader источник сохраненного токена, общий для API и воркера
type TokenLoader interface {
	LoadToken(ctx context.Context) (*oauth2.Token, error)
}

// Session хранит текущие учетные данные OAuth и умеет их обновлять.
// Разделяется всеми вызовами Content API в процессе.
type Session struct {
	oauth2Config *oauth2.Config
	httpClient   *http.Client
	loader       TokenLoader

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewSession создает сессию с начальным токеном (может быть nil)
func NewSession(cfg Config, initial *oauth2.Token) *Session {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{ContentScope}
	}

	if initial == nil {
		initial = &oauth2.Token{}
	}

	return &Session{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: scopes,
		},
		token: initial,
	}
}

// WithHTTPClient задает HTTP-клиент для запросов к token endpoint
func (s *Session) WithHTTPClient(client *http.Client) *Session {
	s.httpClient = client
	return s
}

// WithTokenLoader задает хранилище, из которого Reload перечитывает токен
func (s *Session) WithTokenLoader(loader TokenLoader) *Session {
	s.loader = loader
	return s
}

// Reload перечитывает токен из хранилища. Токен мог быть получен или обновлен
// другим процессом. Без загрузчика и без сохраненного токена ничего не меняет.
func (s *Session) Reload(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}

	token, err := s.loader.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload token: %w", err)
	}
	if token == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.RefreshToken == "" {
		token.RefreshToken = s.token.RefreshToken
	}
	s.token = token
	return nil
}

// CurrentToken возвращает копию текущего токена
func (s *Session) CurrentToken() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token := *s.token
	return &token
}

// HasRefreshToken сообщает, можно ли обновить токен без участия пользователя
func (s *Session) HasRefreshToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token.RefreshToken != ""
}

// Refresh получает новый access token по refresh token и сохраняет его в сессии.
// Возвращенный токен вызывающий код должен сохранить в хранилище настроек.
func (s *Session) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	refreshToken := s.token.RefreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	// просроченный токен без access token заставляет TokenSource сходить в token endpoint
	token, err := s.oauth2Config.TokenSource(s.context(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	s.set(token)
	return s.CurrentToken(), nil
}

// AuthCodeURL возвращает адрес страницы согласия Google для интерактивной авторизации
func (s *Session) AuthCodeURL(state string) string {
	return s.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange обменивает код авторизации на токены и сохраняет их в сессии
func (s *Session) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauth2Config.Exchange(s.context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	s.mu.RLock()
	previousRefresh := s.token.RefreshToken
	s.mu.RUnlock()
	// Google отдает refresh token только при первом согласии
	if token.RefreshToken == "" {
		token.RefreshToken = previousRefresh
	}

	s.set(token)
	return s.CurrentToken(), nil
}

func (s *Session) set(token *oauth2.Token) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) context(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
