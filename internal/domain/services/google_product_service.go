package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/feed"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	pkgutils "github.com/athebyme/gomarket-platform/feed-service/pkg/utils"
)

// Тексты сообщений администратору
const (
	msgLocalUpdated   = "Successfully updated local properties."
	msgUploaded       = "Successfully uploaded to Google!"
	msgUploadFailed   = "Failed to upload to Google"
	msgUnknownAttrFmt = "Unknown feed attributes: %s"
	msgInvalidAttrFmt = "Invalid values for feed attributes: %s"
)

// GoogleProductView данные записи для админки
type GoogleProductView struct {
	Product            *models.GoogleProduct `json:"google_product"`
	Variant            *models.Variant       `json:"variant"`
	Attributes         *feed.Payload         `json:"attributes"`
	AttributesJSON     json.RawMessage       `json:"attributes_json"`
	MerchantCenterLink string                `json:"merchant_center_link,omitempty"`
}

// UpdateReport итог обновления локальных свойств и, если запрошено, отправки в Google
type UpdateReport struct {
	Product    *models.GoogleProduct `json:"google_product"`
	LocalSaved bool                  `json:"local_saved"`
	Upload     *SyncResult           `json:"upload,omitempty"`
	Status     StatusMessage         `json:"status"`
}

// GoogleProductService сценарии админки для записей Google Merchant
type GoogleProductService struct {
	repo   GoogleProductRepository
	sync   *SyncClient
	mapper *feed.Mapper
	logger interfaces.LoggerPort
}

// NewGoogleProductService создает новый экземпляр GoogleProductService
func NewGoogleProductService(repo GoogleProductRepository, sync *SyncClient, mapper *feed.Mapper, logger interfaces.LoggerPort) *GoogleProductService {
	return &GoogleProductService{
		repo:   repo,
		sync:   sync,
		mapper: mapper,
		logger: logger,
	}
}

// GetView возвращает запись, вариант и атрибуты фида
func (s *GoogleProductService) GetView(ctx context.Context, id int64) (*GoogleProductView, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	attrsJSON, err := s.mapper.AttributesJSON(product)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed attributes: %w", err)
	}

	return &GoogleProductView{
		Product:            product,
		Variant:            product.Variant,
		Attributes:         s.mapper.Attributes(product, false),
		AttributesJSON:     attrsJSON,
		MerchantCenterLink: product.MerchantCenterLink(),
	}, nil
}

// EnsureForVariant возвращает запись варианта, создавая ее при отсутствии
func (s *GoogleProductService) EnsureForVariant(ctx context.Context, variantID int64) (*models.GoogleProduct, bool, error) {
	if variantID <= 0 {
		return nil, false, fmt.Errorf("variant id must be positive: %w", utils.ErrInvalidGoogleProductID)
	}

	product, err := s.repo.GetByVariantID(ctx, variantID)
	if err == nil {
		return product, false, nil
	}
	if !errors.Is(err, utils.ErrGoogleProductNotFound) {
		return nil, false, err
	}

	product = &models.GoogleProduct{VariantID: variantID}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, false, err
	}
	s.logger.InfoWithContext(ctx, "Создана запись Google Merchant для варианта",
		interfaces.LogField{Key: "variant_id", Value: variantID},
		interfaces.LogField{Key: "google_product_id", Value: product.ID},
	)
	return product, true, nil
}

// UpdateAndUpload применяет локальные изменения и, если upload, отправляет товар в Google.
// Ошибки проверки и ошибки Google попадают в Status; возвращаются только ошибки
// хранилища и транспорта.
func (s *GoogleProductService) UpdateAndUpload(ctx context.Context, id int64, update models.LocalUpdate, upload bool) (*UpdateReport, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &UpdateReport{Product: product}

	if unknown := unknownAttributes(update.AttributeOverrides); len(unknown) > 0 {
		report.Status.Add(MessageError, fmt.Sprintf(msgUnknownAttrFmt, strings.Join(unknown, ", ")))
	} else if invalid := feed.InvalidOverrides(update.AttributeOverrides); len(invalid) > 0 {
		report.Status.Add(MessageError, fmt.Sprintf(msgInvalidAttrFmt, strings.Join(invalid, ", ")))
	} else {
		applyLocalUpdate(product, update)
		if err := s.repo.UpdateLocal(ctx, product); err != nil {
			return nil, err
		}
		report.LocalSaved = true
		report.Status.Add(MessageSuccess, msgLocalUpdated)
	}

	if upload {
		result, err := s.sync.CreateOrUpdate(ctx, product)
		if err != nil {
			return nil, err
		}
		report.Upload = result
		if result.Status == SyncStatusFailed {
			report.Status.Add(MessageError, msgUploadFailed)
		} else {
			report.Status.Add(MessageSuccess, msgUploaded)
		}
	}

	return report, nil
}

// Fetch запрашивает товар в Google
func (s *GoogleProductService) Fetch(ctx context.Context, id int64) (*SyncResult, error) {
	return s.withProduct(ctx, id, s.sync.Fetch)
}

// Upload отправляет товар в Google
func (s *GoogleProductService) Upload(ctx context.Context, id int64) (*SyncResult, error) {
	return s.withProduct(ctx, id, s.sync.CreateOrUpdate)
}

// DeleteRemote удаляет товар в Google; локальная запись остается
func (s *GoogleProductService) DeleteRemote(ctx context.Context, id int64) (*SyncResult, error) {
	return s.withProduct(ctx, id, s.sync.Delete)
}

// History возвращает страницу истории синхронизаций записи
func (s *GoogleProductService) History(ctx context.Context, id int64, page, pageSize int) (*pkgutils.PagedResult[*models.SyncHistoryRecord], error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	pagination := pkgutils.NewPagination(page, pageSize)
	records, total, err := s.repo.ListHistory(ctx, id, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, err
	}
	pagination.SetTotal(total)

	return pkgutils.NewPagedResult(records, pagination), nil
}

// Status статус товара в Google пока не поддерживается
func (s *GoogleProductService) Status(ctx context.Context, id int64) error {
	return utils.ErrStatusNotImplemented
}

func (s *GoogleProductService) withProduct(
	ctx context.Context,
	id int64,
	op func(context.Context, *models.GoogleProduct) (*SyncResult, error),
) (*SyncResult, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return op(ctx, product)
}

func unknownAttributes(overrides map[string]string) []string {
	var unknown []string
	for name := range overrides {
		if !feed.IsKnown(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// applyLocalUpdate переносит изменения в запись; пустое значение снимает переопределение
func applyLocalUpdate(product *models.GoogleProduct, update models.LocalUpdate) {
	if update.AutoUpdate != nil {
		product.AutoUpdate = *update.AutoUpdate
	}
	if len(update.AttributeOverrides) == 0 {
		return
	}
	if product.AttributeOverrides == nil {
		product.AttributeOverrides = make(map[string]string, len(update.AttributeOverrides))
	}
	for name, value := range update.AttributeOverrides {
		if value == "" {
			delete(product.AttributeOverrides, name)
			continue
		}
		product.AttributeOverrides[name] = value
	}
}
