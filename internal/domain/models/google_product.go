package models

import (
	"fmt"
	"net/url"
	"time"
)

// GoogleProduct представляет локальную запись о синхронизации варианта с Google Merchant Center
type GoogleProduct struct {
	ID        int64    `json:"id"`
	VariantID int64    `json:"variant_id"`
	Variant   *Variant `json:"variant,omitempty"`

	// RemoteProductID назначается Google после успешного создания товара
	RemoteProductID *string `json:"remote_product_id,omitempty"`
	// LastSyncError хранит JSON со списком ошибок последнего вызова, nil при успехе
	LastSyncError *string    `json:"last_sync_error,omitempty"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	AutoUpdate    bool       `json:"auto_update"`

	// AttributeOverrides локальные значения атрибутов фида, заданные вручную
	AttributeOverrides map[string]string `json:"attribute_overrides,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRemoteID сообщает, создан ли товар на стороне Google
func (p *GoogleProduct) HasRemoteID() bool {
	return p.RemoteProductID != nil && *p.RemoteProductID != ""
}

// RemoteID возвращает идентификатор товара в Google или пустую строку
func (p *GoogleProduct) RemoteID() string {
	if p.RemoteProductID == nil {
		return ""
	}
	return *p.RemoteProductID
}

// MerchantCenterLink возвращает ссылку на товар в Merchant Center, если он уже создан
func (p *GoogleProduct) MerchantCenterLink() string {
	if !p.HasRemoteID() || p.Variant == nil {
		return ""
	}
	return fmt.Sprintf("https://google.com/merchants/view?merchantOfferId=%s&channel=0&country=US*language=en",
		url.QueryEscape(p.Variant.SKU))
}

// SyncHistoryRecord представляет запись в истории синхронизаций товара
type SyncHistoryRecord struct {
	ID              string    `json:"id"`
	GoogleProductID int64     `json:"google_product_id"`
	Operation       string    `json:"operation"` // "get", "insert", "delete"
	Success         bool      `json:"success"`
	Errors          *string   `json:"errors,omitempty"`
	SyncedAt        time.Time `json:"synced_at"`
}

// LocalUpdate содержит изменения локальных свойств записи, разрешенные из админки
type LocalUpdate struct {
	AutoUpdate         *bool             `json:"auto_update,omitempty"`
	AttributeOverrides map[string]string `json:"attribute_overrides,omitempty"`
}
