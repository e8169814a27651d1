package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxResponseSize максимальный размер тела ответа Content API (10MB)
const maxResponseSize = 10 * 1024 * 1024

var (
	ErrEmptyBaseURL    = errors.New("content api: base url is empty")
	ErrEmptyMerchantID = errors.New("content api: merchant id is empty")
	ErrEmptyProductID  = errors.New("content api: product id is empty")
	ErrTransport       = errors.New("content api: transport failure")
)

// TokenProvider отдает текущий access token
type TokenProvider interface {
	CurrentToken() *oauth2.Token
}

// Config настройки клиента Content API
type Config struct {
	BaseURL           string
	ApplicationName   string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client клиент ресурса products Content API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenProvider
}

// NewClient создает клиент Content API
func NewClient(cfg Config, tokens TokenProvider) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	userAgent := cfg.ApplicationName
	if userAgent == "" {
		userAgent = "feed-service"
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		tokens:     tokens,
	}, nil
}

// Get запрашивает товар по id
func (c *Client) Get(ctx context.Context, merchantID, productID string) (*Response, error) {
	path, err := c.productPath(merchantID, productID)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// Insert создает или заменяет товар
func (c *Client) Insert(ctx context.Context, merchantID string, body any) (*Response, error) {
	if merchantID == "" {
		return nil, ErrEmptyMerchantID
	}
	return c.do(ctx, http.MethodPost, "/"+url.PathEscape(merchantID)+"/products", body)
}

// Delete удаляет товар по id
func (c *Client) Delete(ctx context.Context, merchantID, productID string) (*Response, error) {
	path, err := c.productPath(merchantID, productID)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) productPath(merchantID, productID string) (string, error) {
	if merchantID == "" {
		return "", ErrEmptyMerchantID
	}
	if productID == "" {
		return "", ErrEmptyProductID
	}
	return "/" + url.PathEscape(merchantID) + "/products/" + url.PathEscape(productID), nil
}

// do выполняет запрос. Ошибка возвращается только при сбое транспорта;
// ответы с кодом ошибки разбираются в Response.Error.
func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.CurrentToken(); token != nil && token.AccessToken != "" {
			token.SetAuthHeader(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("request was cancelled: %w", ctx.Err())
		default:
			return nil, fmt.Errorf("%w: failed to execute request: %w", ErrTransport, err)
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	return ParseResponse(resp.StatusCode, data), nil
}
