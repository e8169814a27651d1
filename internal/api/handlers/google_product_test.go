package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	pkgutils "github.com/athebyme/gomarket-platform/feed-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type stubService struct {
	err error

	ensured     int64
	created     bool
	update      models.LocalUpdate
	uploadFlag  bool
	report      *services.UpdateReport
	syncResult  *services.SyncResult
	historyArgs [2]int
}

func (s *stubService) GetView(_ context.Context, id int64) (*services.GoogleProductView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.GoogleProductView{
		Product:            &models.GoogleProduct{ID: id, VariantID: 10},
		MerchantCenterLink: "https://google.com/merchants/view?merchantOfferId=WID-001",
	}, nil
}

func (s *stubService) EnsureForVariant(_ context.Context, variantID int64) (*models.GoogleProduct, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	s.ensured = variantID
	return &models.GoogleProduct{ID: 1, VariantID: variantID}, s.created, nil
}

func (s *stubService) UpdateAndUpload(_ context.Context, id int64, update models.LocalUpdate, upload bool) (*services.UpdateReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.update, s.uploadFlag = update, upload
	return s.report, nil
}

func (s *stubService) sync() (*services.SyncResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.syncResult, nil
}

func (s *stubService) Fetch(context.Context, int64) (*services.SyncResult, error)        { return s.sync() }
func (s *stubService) Upload(context.Context, int64) (*services.SyncResult, error)       { return s.sync() }
func (s *stubService) DeleteRemote(context.Context, int64) (*services.SyncResult, error) { return s.sync() }

func (s *stubService) History(_ context.Context, _ int64, page, pageSize int) (*pkgutils.PagedResult[*models.SyncHistoryRecord], error) {
	if s.err != nil {
		return nil, s.err
	}
	s.historyArgs = [2]int{page, pageSize}
	p := pkgutils.NewPagination(page, pageSize)
	p.SetTotal(1)
	return pkgutils.NewPagedResult([]*models.SyncHistoryRecord{{ID: "h-1", Operation: "insert", Success: true}}, p), nil
}

func (s *stubService) Status(context.Context, int64) error {
	return utils.ErrStatusNotImplemented
}

func newTestRouter(svc *stubService) http.Handler {
	h := NewGoogleProductHandler(svc, logger.NewFromCore(zapcore.NewNopCore()))
	r := chi.NewRouter()
	r.Post("/google-products", h.Ensure)
	r.Route("/google-products/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Post("/upload", h.Upload)
		r.Get("/remote", h.FetchRemote)
		r.Delete("/remote", h.DeleteRemote)
		r.Get("/history", h.History)
		r.Get("/status", h.Status)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestGoogleProductHandler_Get(t *testing.T) {
	rec, body := do(t, newTestRouter(&stubService{}), http.MethodGet, "/google-products/5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(5), data["google_product"].(map[string]any)["id"])
	assert.Contains(t, data["merchant_center_link"], "merchantOfferId=WID-001")
}

func TestGoogleProductHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("load: %w", utils.ErrGoogleProductNotFound), want: http.StatusNotFound},
		{name: "invalid id", err: utils.ErrInvalidGoogleProductID, want: http.StatusBadRequest},
		{name: "transport", err: fmt.Errorf("%w: failed to execute request: %w", contentapi.ErrTransport, errors.New("reset")), want: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "storage", err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, newTestRouter(&stubService{err: tt.err}), http.MethodGet, "/google-products/5", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGoogleProductHandler_BadID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-3"} {
		rec, body := do(t, newTestRouter(&stubService{}), http.MethodGet, "/google-products/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "bad_request", body["error"])
	}
}

func TestGoogleProductHandler_Ensure(t *testing.T) {
	svc := &stubService{created: true}
	rec, _ := do(t, newTestRouter(svc), http.MethodPost, "/google-products", `{"variant_id":77}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(77), svc.ensured)

	svc.created = false
	rec, _ = do(t, newTestRouter(svc), http.MethodPost, "/google-products", `{"variant_id":77}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, newTestRouter(svc), http.MethodPost, "/google-products", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleProductHandler_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubService{report: &services.UpdateReport{
			LocalSaved: true,
			Status:     services.StatusMessage{Success: "Successfully updated local properties."},
		}}
		rec, body := do(t, newTestRouter(svc), http.MethodPut, "/google-products/5",
			`{"auto_update":true,"attribute_overrides":{"brand":"Acme"},"upload":true}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		require.NotNil(t, svc.update.AutoUpdate)
		assert.True(t, *svc.update.AutoUpdate)
		assert.Equal(t, map[string]string{"brand": "Acme"}, svc.update.AttributeOverrides)
		assert.True(t, svc.uploadFlag)
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := &stubService{report: &services.UpdateReport{
			Status: services.StatusMessage{Error: "Unknown feed attributes: colour"},
		}}
		rec, body := do(t, newTestRouter(svc), http.MethodPut, "/google-products/5",
			`{"attribute_overrides":{"colour":"red"}}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, false, body["success"])
		status := body["data"].(map[string]any)["status"].(map[string]any)
		assert.Equal(t, "Unknown feed attributes: colour", status["error"])
	})
}

func TestGoogleProductHandler_RemoteOperations(t *testing.T) {
	svc := &stubService{syncResult: &services.SyncResult{
		Operation: services.OperationGet,
		Status:    services.SyncStatusSuccess,
		Outcome:   services.Outcome{Success: true},
		Response:  contentapi.ParseResponse(200, []byte(`{"id":"online:en:US:WID-001","title":"Widget"}`)),
	}}
	router := newTestRouter(svc)

	rec, body := do(t, router, http.MethodGet, "/google-products/5/remote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "success", data["status"])
	assert.Equal(t, "Widget", data["remote"].(map[string]any)["title"])

	svc.syncResult = &services.SyncResult{Operation: services.OperationDelete, Status: services.SyncStatusSkipped}
	rec, body = do(t, router, http.MethodDelete, "/google-products/5/remote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = body["data"].(map[string]any)
	assert.Equal(t, "skipped", data["status"])
	assert.NotContains(t, data, "remote")

	svc.syncResult = &services.SyncResult{Operation: services.OperationInsert, Status: services.SyncStatusFailed}
	rec, body = do(t, router, http.MethodPost, "/google-products/5/upload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestGoogleProductHandler_History(t *testing.T) {
	svc := &stubService{}
	rec, body := do(t, newTestRouter(svc), http.MethodGet, "/google-products/5/history?page=2&page_size=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{2, 10}, svc.historyArgs)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["total_items"])
}

func TestGoogleProductHandler_Status(t *testing.T) {
	rec, body := do(t, newTestRouter(&stubService{}), http.MethodGet, "/google-products/5/status", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "not_implemented", body["error"])
}
