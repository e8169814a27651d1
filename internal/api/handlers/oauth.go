package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/go-chi/render"
	"golang.org/x/oauth2"
)

const (
	oauthStateTTL    = 10 * time.Minute
	oauthStatePrefix = "google_oauth_state:"
)

// OAuthSession авторизация приложения в Google Merchant
type OAuthSession interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// TokenSaver сохраняет полученный токен
type TokenSaver interface {
	SaveToken(ctx context.Context, token *oauth2.Token) error
}

// StateStore хранилище одноразовых значений state.
// Take атомарно читает и удаляет значение, поэтому state можно использовать один раз.
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Take(ctx context.Context, key string) ([]byte, error)
}

// OAuthHandler подключение аккаунта Google Merchant через OAuth 2.0
type OAuthHandler struct {
	session OAuthSession
	tokens  TokenSaver
	states  StateStore
	logger  interfaces.LoggerPort
}

func NewOAuthHandler(session OAuthSession, tokens TokenSaver, states StateStore, logger interfaces.LoggerPort) *OAuthHandler {
	return &OAuthHandler{
		session: session,
		tokens:  tokens,
		states:  states,
		logger:  logger,
	}
}

type authorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// Authorize godoc
// @Summary      Начать авторизацию Google
// @Description  Возвращает URL страницы согласия Google с одноразовым state
// @Tags         google-oauth
// @Produce      json
// @Success      200 {object} response
// @Router       /google/oauth/authorize [get]
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка генерации state",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка генерации state")
		return
	}

	if err := h.states.Set(r.Context(), oauthStatePrefix+state, []byte("1"), oauthStateTTL); err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка сохранения state",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка сохранения state")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: authorizeResponse{
		AuthorizationURL: h.session.AuthCodeURL(state),
	}})
}

// Callback godoc
// @Summary      Завершить авторизацию Google
// @Description  Обменивает код авторизации на токены и сохраняет их
// @Tags         google-oauth
// @Produce      json
// @Param        state query string true "state из Authorize"
// @Param        code query string true "код авторизации"
// @Success      200 {object} response
// @Failure      400 {object} errorResponse
// @Router       /google/oauth/callback [get]
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if reason := query.Get("error"); reason != "" {
		h.logger.WarnWithContext(r.Context(), "Google отклонил авторизацию",
			interfaces.LogField{Key: "reason", Value: reason})
		writeError(w, r, http.StatusBadRequest, "access_denied", reason)
		return
	}

	state, code := query.Get("state"), query.Get("code")
	if state == "" || code == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "Не указан state или code")
		return
	}

	key := oauthStatePrefix + state
	if _, err := h.states.Take(r.Context(), key); err != nil {
		if !errors.Is(err, interfaces.ErrCacheMiss) {
			h.logger.ErrorWithContext(r.Context(), "Ошибка чтения state",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		writeError(w, r, http.StatusBadRequest, "invalid_state", "Неизвестный или просроченный state")
		return
	}

	token, err := h.session.Exchange(r.Context(), code)
	if err != nil {
		h.logger.WarnWithContext(r.Context(), "Ошибка обмена кода авторизации",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusBadGateway, "exchange_failed", "Не удалось получить токен Google")
		return
	}

	if err := h.tokens.SaveToken(r.Context(), token); err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка сохранения токена Google",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Не удалось сохранить токен Google")
		return
	}

	h.logger.InfoWithContext(r.Context(), "Аккаунт Google Merchant подключен",
		interfaces.LogField{Key: "has_refresh_token", Value: token.RefreshToken != ""})

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true})
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
