package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	pkgutils "github.com/athebyme/gomarket-platform/feed-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// GoogleProductService сценарии админки, которые использует обработчик
type GoogleProductService interface {
	GetView(ctx context.Context, id int64) (*services.GoogleProductView, error)
	EnsureForVariant(ctx context.Context, variantID int64) (*models.GoogleProduct, bool, error)
	UpdateAndUpload(ctx context.Context, id int64, update models.LocalUpdate, upload bool) (*services.UpdateReport, error)
	Fetch(ctx context.Context, id int64) (*services.SyncResult, error)
	Upload(ctx context.Context, id int64) (*services.SyncResult, error)
	DeleteRemote(ctx context.Context, id int64) (*services.SyncResult, error)
	History(ctx context.Context, id int64, page, pageSize int) (*pkgutils.PagedResult[*models.SyncHistoryRecord], error)
	Status(ctx context.Context, id int64) error
}

// GoogleProductHandler обработчик запросов для записей Google Merchant
type GoogleProductHandler struct {
	service GoogleProductService
	logger  interfaces.LoggerPort
}

// NewGoogleProductHandler создает новый обработчик
func NewGoogleProductHandler(service GoogleProductService, logger interfaces.LoggerPort) *GoogleProductHandler {
	return &GoogleProductHandler{
		service: service,
		logger:  logger,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ensureRequest тело запроса на создание записи варианта
type ensureRequest struct {
	VariantID int64 `json:"variant_id"`
}

// updateRequest тело запроса на локальное обновление
type updateRequest struct {
	AutoUpdate         *bool             `json:"auto_update,omitempty"`
	AttributeOverrides map[string]string `json:"attribute_overrides,omitempty"`
	Upload             bool              `json:"upload"`
}

// remoteResponse результат вызова Content API вместе с телом ответа Google
type remoteResponse struct {
	*services.SyncResult
	Remote json.RawMessage `json:"remote,omitempty"`
}

func newRemoteResponse(result *services.SyncResult) remoteResponse {
	out := remoteResponse{SyncResult: result}
	if result.Response != nil && json.Valid(result.Response.Data) {
		out.Remote = result.Response.Data
	}
	return out
}

// Ensure godoc
// @Summary      Создать запись для варианта
// @Description  Возвращает существующую запись варианта или создает новую
// @Tags         google-products
// @Accept       json
// @Produce      json
// @Param        request body ensureRequest true "ID варианта"
// @Success      200 {object} response
// @Success      201 {object} response
// @Failure      400 {object} errorResponse
// @Router       /google-products [post]
func (h *GoogleProductHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Некорректное тело запроса")
		return
	}

	product, created, err := h.service.EnsureForVariant(r.Context(), req.VariantID)
	if err != nil {
		h.fail(w, r, err, "Ошибка создания записи Google")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	render.Status(r, status)
	render.JSON(w, r, response{Success: true, Data: product})
}

// Get godoc
// @Summary      Получить запись
// @Description  Запись, вариант, атрибуты фида и ссылка на Merchant Center
// @Tags         google-products
// @Produce      json
// @Param        id path int true "ID записи"
// @Success      200 {object} response
// @Failure      404 {object} errorResponse
// @Router       /google-products/{id} [get]
func (h *GoogleProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetView(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Ошибка получения записи Google")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: view})
}

// Update godoc
// @Summary      Обновить локальные свойства
// @Description  Меняет auto_update и переопределения атрибутов, при upload=true отправляет товар в Google
// @Tags         google-products
// @Accept       json
// @Produce      json
// @Param        id path int true "ID записи"
// @Param        request body updateRequest true "Изменения"
// @Success      200 {object} response
// @Success      422 {object} response
// @Failure      404 {object} errorResponse
// @Router       /google-products/{id} [put]
func (h *GoogleProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Некорректное тело запроса")
		return
	}

	report, err := h.service.UpdateAndUpload(r.Context(), id, models.LocalUpdate{
		AutoUpdate:         req.AutoUpdate,
		AttributeOverrides: req.AttributeOverrides,
	}, req.Upload)
	if err != nil {
		h.fail(w, r, err, "Ошибка обновления записи Google")
		return
	}

	status := http.StatusOK
	if !report.Status.OK() {
		status = http.StatusUnprocessableEntity
	}
	render.Status(r, status)
	render.JSON(w, r, response{Success: report.Status.OK(), Data: report})
}

// Upload godoc
// @Summary      Отправить товар в Google
// @Tags         google-products
// @Produce      json
// @Param        id path int true "ID записи"
// @Success      200 {object} response
// @Failure      404 {object} errorResponse
// @Failure      502 {object} errorResponse
// @Router       /google-products/{id}/upload [post]
func (h *GoogleProductHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.remote(w, r, h.service.Upload, "Ошибка отправки товара в Google")
}

// FetchRemote godoc
// @Summary      Получить товар из Google
// @Tags         google-products
// @Produce      json
// @Param        id path int true "ID записи"
// @Success      200 {object} response
// @Failure      404 {object} errorResponse
// @Router       /google-products/{id}/remote [get]
func (h *GoogleProductHandler) FetchRemote(w http.ResponseWriter, r *http.Request) {
	h.remote(w, r, h.service.Fetch, "Ошибка получения товара из Google")
}

// DeleteRemote godoc
// @Summary      Удалить товар в Google
// @Description  Локальная запись сохраняется
// @Tags         google-products
// @Produce      json
// @Param        id path int true "ID записи"
// @Success      200 {object} response
// @Failure      404 {object} errorResponse
// @Router       /google-products/{id}/remote [delete]
func (h *GoogleProductHandler) DeleteRemote(w http.ResponseWriter, r *http.Request) {
	h.remote(w, r, h.service.DeleteRemote, "Ошибка удаления товара в Google")
}

// History godoc
// @Summary      История синхронизаций
// @Tags         google-products
// @Produce      json
// @Param        id path int true "ID записи"
// @Param        page query int false "Номер страницы"
// @Param        page_size query int false "Размер страницы"
// @Success      200 {object} response
// @Failure      404 {object} errorResponse
// @Router       /google-products/{id}/history [get]
func (h *GoogleProductHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := h.service.History(r.Context(), id, page, pageSize)
	if err != nil {
		h.fail(w, r, err, "Ошибка получения истории синхронизаций")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: result.Items, Meta: result.Pagination})
}

// Status godoc
// @Summary      Статус товара в Google
// @Tags         google-products
// @Produce      json
// @Param        id path int true "ID записи"
// @Failure      501 {object} errorResponse
// @Router       /google-products/{id}/status [get]
func (h *GoogleProductHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	h.fail(w, r, h.service.Status(r.Context(), id), "Ошибка получения статуса товара")
}

func (h *GoogleProductHandler) remote(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, int64) (*services.SyncResult, error),
	failure string,
) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	result, err := op(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, failure)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: result.Status != services.SyncStatusFailed, Data: newRemoteResponse(result)})
}

func (h *GoogleProductHandler) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, r, "Некорректный ID записи")
		return 0, false
	}
	return id, true
}

func (h *GoogleProductHandler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, "bad_request", message)
}

// fail отображает ошибку сервиса в HTTP статус
func (h *GoogleProductHandler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case err == nil:
		render.Status(r, http.StatusNoContent)
		render.NoContent(w, r)
	case errors.Is(err, utils.ErrGoogleProductNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "Запись Google не найдена")
	case errors.Is(err, utils.ErrInvalidGoogleProductID):
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, utils.ErrStatusNotImplemented):
		writeError(w, r, http.StatusNotImplemented, "not_implemented", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "timeout", message)
	case errors.Is(err, contentapi.ErrTransport):
		h.logger.WarnWithContext(r.Context(), message,
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusBadGateway, "remote_unavailable", message)
	default:
		h.logger.ErrorWithContext(r.Context(), message,
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", message)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}
