package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/feed"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	authErrorBody  = `{"error":{"errors":[{"domain":"global","reason":"authError","message":"Invalid Credentials","locationType":"header","location":"Authorization"}],"code":401,"message":"Invalid Credentials"}}`
	validationBody = `{"error":{"errors":[{"domain":"global","reason":"invalid","message":"[price] validation/missing_required"}],"code":400}}`
)

// apiCall фиксирует один вызов fakeAPI
type apiCall struct {
	method     string
	merchantID string
	productID  string
	body       any
}

// fakeAPI отдает заранее заданные ответы по очереди
type fakeAPI struct {
	mu        sync.Mutex
	responses []*contentapi.Response
	errs      []error
	calls     []apiCall
}

func (f *fakeAPI) next(call apiCall) (*contentapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, call)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return response(200, `{}`), nil
}

func (f *fakeAPI) Get(_ context.Context, merchantID, productID string) (*contentapi.Response, error) {
	return f.next(apiCall{method: "get", merchantID: merchantID, productID: productID})
}

func (f *fakeAPI) Insert(_ context.Context, merchantID string, body any) (*contentapi.Response, error) {
	return f.next(apiCall{method: "insert", merchantID: merchantID, body: body})
}

func (f *fakeAPI) Delete(_ context.Context, merchantID, productID string) (*contentapi.Response, error) {
	return f.next(apiCall{method: "delete", merchantID: merchantID, productID: productID})
}

type fakeSession struct {
	refreshToken string
	refreshErr   error
	refreshed    int

	// stored токен, который появится в хранилище к моменту Reload
	stored    string
	reloadErr error
	reloads   int
}

func (s *fakeSession) Reload(context.Context) error {
	s.reloads++
	if s.reloadErr != nil {
		return s.reloadErr
	}
	if s.stored != "" {
		s.refreshToken = s.stored
	}
	return nil
}

func (s *fakeSession) HasRefreshToken() bool {
	return s.refreshToken != ""
}

func (s *fakeSession) Refresh(context.Context) (*oauth2.Token, error) {
	s.refreshed++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return &oauth2.Token{AccessToken: "access-2", RefreshToken: s.refreshToken}, nil
}

type fakeTokenStore struct {
	saved   []*oauth2.Token
	saveErr error
}

func (s *fakeTokenStore) SaveToken(_ context.Context, token *oauth2.Token) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, token)
	return nil
}

// fakeRepo хранилище в памяти
type fakeRepo struct {
	products map[int64]*models.GoogleProduct
	history  []*models.SyncHistoryRecord
	saves    int
	saveErr  error
	nextID   int64
}

func newFakeRepo(products ...*models.GoogleProduct) *fakeRepo {
	repo := &fakeRepo{products: map[int64]*models.GoogleProduct{}, nextID: 100}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*models.GoogleProduct, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, utils.ErrGoogleProductNotFound
	}
	return p, nil
}

func (r *fakeRepo) GetByVariantID(_ context.Context, variantID int64) (*models.GoogleProduct, error) {
	for _, p := range r.products {
		if p.VariantID == variantID {
			return p, nil
		}
	}
	return nil, utils.ErrGoogleProductNotFound
}

func (r *fakeRepo) Create(_ context.Context, product *models.GoogleProduct) error {
	product.ID = r.nextID
	r.nextID++
	r.products[product.ID] = product
	return nil
}

func (r *fakeRepo) UpdateLocal(_ context.Context, product *models.GoogleProduct) error {
	if _, ok := r.products[product.ID]; !ok {
		return utils.ErrGoogleProductNotFound
	}
	return nil
}

func (r *fakeRepo) SaveSyncState(_ context.Context, product *models.GoogleProduct, record *models.SyncHistoryRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	record.GoogleProductID = product.ID
	r.history = append(r.history, record)
	return nil
}

func (r *fakeRepo) ListHistory(_ context.Context, productID int64, limit, offset int) ([]*models.SyncHistoryRecord, int64, error) {
	var matched []*models.SyncHistoryRecord
	for _, h := range r.history {
		if h.GoogleProductID == productID {
			matched = append(matched, h)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func response(status int, body string) *contentapi.Response {
	return contentapi.ParseResponse(status, []byte(body))
}

func newObservedLogger() (interfaces.LoggerPort, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromCore(core), logs
}

func newTestMapper(t *testing.T) *feed.Mapper {
	t.Helper()
	registry, err := feed.NewRegistryBuilder().WithDefaults(feed.Defaults{
		StoreURL:        "https://shop.example.com",
		Condition:       "new",
		ContentLanguage: "en",
		TargetCountry:   "US",
		Channel:         "online",
	}).Build()
	require.NoError(t, err)
	return feed.NewMapper(registry)
}

func widgetProduct(remoteID *string) *models.GoogleProduct {
	return &models.GoogleProduct{
		ID:              5,
		VariantID:       11,
		RemoteProductID: remoteID,
		Variant: &models.Variant{
			ID:          11,
			ProductID:   3,
			SKU:         "WID-001",
			Name:        "Widget",
			Slug:        "widget",
			Price:       decimal.RequireFromString("9.99"),
			CountOnHand: 2,
		},
	}
}

type syncFixture struct {
	api     *fakeAPI
	session *fakeSession
	tokens  *fakeTokenStore
	repo    *fakeRepo
	logs    *observer.ObservedLogs
	client  *SyncClient
}

func newSyncFixture(t *testing.T, product *models.GoogleProduct) *syncFixture {
	t.Helper()
	log, logs := newObservedLogger()
	f := &syncFixture{
		api:     &fakeAPI{},
		session: &fakeSession{refreshToken: "refresh-1"},
		tokens:  &fakeTokenStore{},
		repo:    newFakeRepo(product),
		logs:    logs,
	}
	recorder := NewRecorder(f.repo).WithClock(func() time.Time { return fixedNow })

	client, err := NewSyncClient("42", f.api, newTestMapper(t), f.session, f.tokens, recorder, nil, log)
	require.NoError(t, err)
	f.client = client
	return f
}

func strPtr(s string) *string { return &s }
