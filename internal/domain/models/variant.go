package models

import (
	"github.com/shopspring/decimal"
)

// Variant представляет торговое предложение каталога (один SKU), которое
// синхронизируется с фидом Google Merchant
type Variant struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Slug        string `json:"slug"`

	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
	Currency  string           `json:"currency,omitempty"`

	Weight decimal.Decimal `json:"weight"`

	Brand string `json:"brand,omitempty"`
	GTIN  string `json:"gtin,omitempty"`
	MPN   string `json:"mpn,omitempty"`
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`

	// ImageURLs упорядочены по позиции, первое изображение считается основным
	ImageURLs []string `json:"image_urls,omitempty"`

	CountOnHand   int  `json:"count_on_hand"`
	Backorderable bool `json:"backorderable"`

	GoogleCategory string `json:"google_category,omitempty"`
	ProductType    string `json:"product_type,omitempty"`
}

// InStock сообщает, есть ли товар на складе
func (v *Variant) InStock() bool {
	return v.CountOnHand > 0
}
