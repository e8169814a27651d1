package feed

import (
	"net/url"
	"strconv"

	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
)

// Значения availability в формате Google
const (
	AvailabilityInStock    = "in stock"
	AvailabilityOutOfStock = "out of stock"
	AvailabilityPreorder   = "preorder"
)

// Defaults настройки встроенных резолверов
type Defaults struct {
	StoreURL        string // базовый адрес витрины для link
	Condition       string // состояние товара по умолчанию, обычно "new"
	ContentLanguage string
	TargetCountry   string
	Channel         string // "online" или "local"
	WeightUnit      string // единица для shipping_weight, например "kg"
}

// defaultResolvers возвращает встроенные правила вычисления атрибутов
func defaultResolvers(d Defaults) map[string]ResolverFunc {
	return map[string]ResolverFunc{
		OfferID:               stringField(func(v *models.Variant) string { return v.SKU }),
		Title:                 stringField(func(v *models.Variant) string { return v.Name }),
		Description:           stringField(func(v *models.Variant) string { return v.Description }),
		GoogleProductCategory: stringField(func(v *models.Variant) string { return v.GoogleCategory }),
		ProductType:           stringField(func(v *models.Variant) string { return v.ProductType }),
		Brand:                 stringField(func(v *models.Variant) string { return v.Brand }),
		GTIN:                  stringField(func(v *models.Variant) string { return v.GTIN }),
		MPN:                   stringField(func(v *models.Variant) string { return v.MPN }),
		Color:                 stringField(func(v *models.Variant) string { return v.Color }),
		Size:                  stringField(func(v *models.Variant) string { return v.Size }),

		Link: func(v *models.Variant) (any, bool) {
			if d.StoreURL == "" || v.Slug == "" {
				return nil, false
			}
			link, err := url.JoinPath(d.StoreURL, "products", v.Slug)
			if err != nil {
				return nil, false
			}
			return link, true
		},
		ImageLink: func(v *models.Variant) (any, bool) {
			if len(v.ImageURLs) == 0 {
				return nil, false
			}
			return v.ImageURLs[0], true
		},
		AdditionalImageLink: func(v *models.Variant) (any, bool) {
			if len(v.ImageURLs) < 2 {
				return nil, false
			}
			links := make([]string, len(v.ImageURLs)-1)
			copy(links, v.ImageURLs[1:])
			return links, true
		},
		Availability: func(v *models.Variant) (any, bool) {
			switch {
			case v.InStock():
				return AvailabilityInStock, true
			case v.Backorderable:
				return AvailabilityPreorder, true
			default:
				return AvailabilityOutOfStock, true
			}
		},
		Price: func(v *models.Variant) (any, bool) {
			if v.Price.IsZero() {
				return nil, false
			}
			return v.Price, true
		},
		SalePrice: func(v *models.Variant) (any, bool) {
			if v.SalePrice == nil {
				return nil, false
			}
			return *v.SalePrice, true
		},
		IdentifierExists: func(v *models.Variant) (any, bool) {
			return v.GTIN != "" || v.MPN != "", true
		},
		ItemGroupID: func(v *models.Variant) (any, bool) {
			if v.ProductID == 0 {
				return nil, false
			}
			return strconv.FormatInt(v.ProductID, 10), true
		},
		ShippingWeight: func(v *models.Variant) (any, bool) {
			if !v.Weight.IsPositive() || d.WeightUnit == "" {
				return nil, false
			}
			return v.Weight.String() + " " + d.WeightUnit, true
		},

		Condition:       constant(d.Condition),
		ContentLanguage: constant(d.ContentLanguage),
		TargetCountry:   constant(d.TargetCountry),
		Channel:         constant(d.Channel),
	}
}

// stringField пропускает пустые строки
func stringField(get func(v *models.Variant) string) ResolverFunc {
	return func(v *models.Variant) (any, bool) {
		s := get(v)
		if s == "" {
			return nil, false
		}
		return s, true
	}
}

func constant(value string) ResolverFunc {
	return func(*models.Variant) (any, bool) {
		if value == "" {
			return nil, false
		}
		return value, true
	}
}
