package feed

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Имена атрибутов фида в каноническом snake_case
const (
	OfferID                = "offer_id"
	Title                  = "title"
	Description            = "description"
	GoogleProductCategory  = "google_product_category"
	ProductType            = "product_type"
	Link                   = "link"
	MobileLink             = "mobile_link"
	ImageLink              = "image_link"
	AdditionalImageLink    = "additional_image_link"
	Condition              = "condition"
	Availability           = "availability"
	AvailabilityDate       = "availability_date"
	Price                  = "price"
	SalePrice              = "sale_price"
	SalePriceEffectiveDate = "sale_price_effective_date"
	Brand                  = "brand"
	GTIN                   = "gtin"
	MPN                    = "mpn"
	IdentifierExists       = "identifier_exists"
	Gender                 = "gender"
	AgeGroup               = "age_group"
	SizeType               = "size_type"
	SizeSystem             = "size_system"
	Color                  = "color"
	Size                   = "size"
	Material               = "material"
	Pattern                = "pattern"
	ItemGroupID            = "item_group_id"
	Tax                    = "tax"
	Shipping               = "shipping"
	ShippingWeight         = "shipping_weight"
	ShippingLabel          = "shipping_label"
	Multipack              = "multipack"
	IsBundle               = "is_bundle"
	Adult                  = "adult"
	AdwordsGrouping        = "adwords_grouping"
	AdwordsLabels          = "adwords_labels"
	AdwordsRedirect        = "adwords_redirect"
	ExcludedDestination    = "excluded_destination"
	ExpirationDate         = "expiration_date"
	ContentLanguage        = "content_language"
	TargetCountry          = "target_country"
	Channel                = "channel"
)

// fieldSet фиксированный порядок атрибутов в выгружаемом товаре
var fieldSet = []string{
	OfferID, Title, Description, GoogleProductCategory, ProductType,
	Link, MobileLink, ImageLink, AdditionalImageLink, Condition,

	Availability, AvailabilityDate, Price, SalePrice,
	SalePriceEffectiveDate,

	Brand, GTIN, MPN, IdentifierExists, Gender, AgeGroup,
	SizeType, SizeSystem,

	Color, Size,

	Material, Pattern, ItemGroupID,

	Tax, Shipping, ShippingWeight, ShippingLabel,

	Multipack, IsBundle,

	Adult, AdwordsGrouping, AdwordsLabels, AdwordsRedirect,

	ExcludedDestination, ExpirationDate,

	ContentLanguage, TargetCountry, Channel,
}

var knownFields = func() map[string]struct{} {
	m := make(map[string]struct{}, len(fieldSet))
	for _, name := range fieldSet {
		m[name] = struct{}{}
	}
	return m
}()

// Fields возвращает копию упорядоченного списка атрибутов
func Fields() []string {
	fields := make([]string, len(fieldSet))
	copy(fields, fieldSet)
	return fields
}

// IsKnown проверяет, входит ли атрибут в набор полей фида
func IsKnown(name string) bool {
	_, ok := knownFields[name]
	return ok
}

// WireName переводит имя атрибута в lowerCamelCase формата Content API.
// additional_image_link в API называется во множественном числе.
func WireName(name string) string {
	if name == AdditionalImageLink {
		return "additionalImageLinks"
	}

	parts := strings.Split(name, "_")
	// cases.Caser хранит состояние, поэтому создается на каждый вызов
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(name))
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		b.WriteString(caser.String(part))
	}
	return b.String()
}
