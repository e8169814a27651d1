package feed

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
)

func testDefaults() Defaults {
	return Defaults{
		StoreURL:        "https://shop.example.com",
		Condition:       "new",
		ContentLanguage: "en",
		TargetCountry:   "US",
		Channel:         "online",
		WeightUnit:      "kg",
	}
}

func testVariant() *models.Variant {
	return &models.Variant{
		ID:          7,
		ProductID:   3,
		SKU:         "WID-001",
		Name:        "Widget",
		Slug:        "widget",
		Price:       decimal.RequireFromString("9.99"),
		CountOnHand: 5,
	}
}

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	registry, err := NewRegistryBuilder().WithDefaults(testDefaults()).Build()
	require.NoError(t, err)
	return NewMapper(registry)
}

func TestWireName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "title", want: "title"},
		{name: "offer_id", want: "offerId"},
		{name: "google_product_category", want: "googleProductCategory"},
		{name: "sale_price_effective_date", want: "salePriceEffectiveDate"},
		{name: "gtin", want: "gtin"},
		{name: "additional_image_link", want: "additionalImageLinks"},
		{name: "image_link", want: "imageLink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WireName(tt.name))
			// повторный вызов дает тот же результат
			assert.Equal(t, tt.want, WireName(tt.name))
		})
	}
}

func TestFields(t *testing.T) {
	fields := Fields()
	assert.Len(t, fields, 43)
	assert.Equal(t, OfferID, fields[0])
	assert.Equal(t, Channel, fields[len(fields)-1])

	fields[0] = "mutated"
	assert.Equal(t, OfferID, Fields()[0], "Fields must return a copy")
}

func TestMapper_Attributes_WireFormat(t *testing.T) {
	mapper := newTestMapper(t)
	record := &models.GoogleProduct{ID: 1, VariantID: 7, Variant: testVariant()}

	payload := mapper.Attributes(record, true)

	title, ok := payload.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Widget", title)

	price, ok := payload.Get("price")
	require.True(t, ok)
	require.IsType(t, decimal.Decimal{}, price)
	assert.True(t, price.(decimal.Decimal).Equal(decimal.RequireFromString("9.99")))

	offerID, ok := payload.Get("offerId")
	require.True(t, ok)
	assert.Equal(t, "WID-001", offerID)

	link, ok := payload.Get("link")
	require.True(t, ok)
	assert.Equal(t, "https://shop.example.com/products/widget", link)

	for _, absent := range []string{"description", "gtin", "brand", "imageLink", "additionalImageLinks", "salePrice", "shippingWeight"} {
		_, ok := payload.Get(absent)
		assert.False(t, ok, "%s should be omitted", absent)
	}

	for _, key := range payload.Keys() {
		assert.NotContains(t, key, "_", "wire keys are camel-cased")
	}
}

func TestMapper_Attributes_PreservesFieldOrder(t *testing.T) {
	mapper := newTestMapper(t)
	variant := testVariant()
	variant.ImageURLs = []string{"https://img/1.jpg", "https://img/2.jpg"}
	variant.GTIN = "0001234567890"
	record := &models.GoogleProduct{Variant: variant}

	payload := mapper.Attributes(record, false)

	assert.Equal(t, []string{
		OfferID, Title, Link, ImageLink, AdditionalImageLink, Condition,
		Availability, Price, GTIN, IdentifierExists, ItemGroupID,
		ContentLanguage, TargetCountry, Channel,
	}, payload.Keys())

	images, ok := payload.Get(AdditionalImageLink)
	require.True(t, ok)
	assert.Equal(t, []string{"https://img/2.jpg"}, images)
}

func TestMapper_Attributes_OverridesWin(t *testing.T) {
	mapper := newTestMapper(t)
	record := &models.GoogleProduct{
		Variant: testVariant(),
		AttributeOverrides: map[string]string{
			Title:  "Widget Deluxe",
			Gender: "unisex",
		},
	}

	payload := mapper.Attributes(record, true)

	title, _ := payload.Get("title")
	assert.Equal(t, "Widget Deluxe", title)
	gender, ok := payload.Get("gender")
	require.True(t, ok)
	assert.Equal(t, "unisex", gender)
}

func TestMapper_Attributes_NilVariant(t *testing.T) {
	mapper := newTestMapper(t)

	payload := mapper.Attributes(&models.GoogleProduct{ID: 1}, true)

	assert.Equal(t, 0, payload.Len())
}

func TestMapper_AttributesJSON(t *testing.T) {
	registry, err := NewRegistryBuilder().
		Register(Title, func(v *models.Variant) (any, bool) { return v.Name, true }).
		Register(AdditionalImageLink, func(v *models.Variant) (any, bool) { return v.ImageURLs, true }).
		Register(GoogleProductCategory, func(*models.Variant) (any, bool) { return "Hardware", true }).
		Register(Brand, func(*models.Variant) (any, bool) { return nil, true }).
		Build()
	require.NoError(t, err)

	variant := testVariant()
	variant.ImageURLs = []string{"a.jpg"}
	data, err := NewMapper(registry).AttributesJSON(&models.GoogleProduct{Variant: variant})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"Widget","googleProductCategory":"Hardware","additionalImageLinks":["a.jpg"]}`, string(data))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "brand")
}

func TestMapper_AttributesJSON_TypedNilIsAbsent(t *testing.T) {
	registry, err := NewRegistryBuilder().
		Register(Title, func(v *models.Variant) (any, bool) { return v.Name, true }).
		Register(Brand, func(*models.Variant) (any, bool) { return (*string)(nil), true }).
		Register(GTIN, func(*models.Variant) (any, bool) { return []string(nil), true }).
		Register(Color, func(*models.Variant) (any, bool) { return map[string]string(nil), true }).
		Build()
	require.NoError(t, err)

	data, err := NewMapper(registry).AttributesJSON(&models.GoogleProduct{Variant: testVariant()})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"Widget"}`, string(data))
	assert.NotContains(t, string(data), "null")
}

func TestMapper_AttributesJSON_OverridesKeepWireTypes(t *testing.T) {
	mapper := newTestMapper(t)
	variant := testVariant()
	variant.GTIN = "0001234567890"
	variant.ImageURLs = []string{"a.jpg", "b.jpg", "c.jpg"}
	record := &models.GoogleProduct{
		Variant: variant,
		AttributeOverrides: map[string]string{
			Price:               "12.50",
			AdditionalImageLink: "x.jpg, y.jpg,",
			IdentifierExists:    "false",
			Adult:               "true",
			AdwordsLabels:       "sale",
		},
	}

	data, err := mapper.AttributesJSON(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 12.5, decoded["price"])
	assert.Equal(t, []any{"x.jpg", "y.jpg"}, decoded["additionalImageLinks"])
	assert.Equal(t, false, decoded["identifierExists"])
	assert.Equal(t, true, decoded["adult"])
	assert.Equal(t, []any{"sale"}, decoded["adwordsLabels"])
}

func TestMapper_Attributes_InvalidOverrideFallsBack(t *testing.T) {
	mapper := newTestMapper(t)
	record := &models.GoogleProduct{
		Variant:            testVariant(),
		AttributeOverrides: map[string]string{Price: "twelve", IdentifierExists: "maybe"},
	}

	payload := mapper.Attributes(record, false)

	price, ok := payload.Get(Price)
	require.True(t, ok)
	require.IsType(t, decimal.Decimal{}, price)
	assert.True(t, price.(decimal.Decimal).Equal(decimal.RequireFromString("9.99")))

	exists, ok := payload.Get(IdentifierExists)
	require.True(t, ok)
	assert.Equal(t, false, exists)
}

func TestCoerceOverride(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		raw     string
		want    any
		present bool
		wantErr bool
	}{
		{name: "price", attr: Price, raw: " 12.50 ", want: decimal.RequireFromString("12.5"), present: true},
		{name: "bad sale price", attr: SalePrice, raw: "cheap", wantErr: true},
		{name: "flag", attr: IsBundle, raw: "1", want: true, present: true},
		{name: "bad flag", attr: Adult, raw: "yes please", wantErr: true},
		{name: "list", attr: AdwordsLabels, raw: "a, b", want: []string{"a", "b"}, present: true},
		{name: "empty list", attr: AdditionalImageLink, raw: " , ", present: false},
		{name: "plain string", attr: Title, raw: "Widget", want: "Widget", present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, present, err := CoerceOverride(tt.attr, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOverride)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.present, present)
			if d, ok := tt.want.(decimal.Decimal); ok {
				require.IsType(t, decimal.Decimal{}, value)
				assert.True(t, d.Equal(value.(decimal.Decimal)))
				return
			}
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestInvalidOverrides(t *testing.T) {
	invalid := InvalidOverrides(map[string]string{
		Price:            "abc",
		Adult:            "maybe",
		SalePrice:        "",
		Title:            "anything",
		IdentifierExists: "false",
	})
	assert.Equal(t, []string{Adult, Price}, invalid)
}

func TestRegistryBuilder(t *testing.T) {
	t.Run("rejects unknown attributes", func(t *testing.T) {
		_, err := NewRegistryBuilder().
			Register("colour", func(*models.Variant) (any, bool) { return "red", true }).
			Build()
		assert.ErrorIs(t, err, ErrUnknownAttribute)
	})

	t.Run("overrides default resolver", func(t *testing.T) {
		registry, err := NewRegistryBuilder().
			WithDefaults(testDefaults()).
			Register(Condition, func(*models.Variant) (any, bool) { return "refurbished", true }).
			Build()
		require.NoError(t, err)

		value, ok := registry.Resolve(testVariant(), Condition)
		require.True(t, ok)
		assert.Equal(t, "refurbished", value)
	})

	t.Run("nil resolver disables attribute", func(t *testing.T) {
		registry, err := NewRegistryBuilder().
			WithDefaults(testDefaults()).
			Register(Channel, nil).
			Build()
		require.NoError(t, err)

		assert.False(t, registry.Has(Channel))
		_, ok := registry.Resolve(testVariant(), Channel)
		assert.False(t, ok)
	})

	t.Run("built registry is isolated from builder", func(t *testing.T) {
		builder := NewRegistryBuilder().WithDefaults(testDefaults())
		registry, err := builder.Build()
		require.NoError(t, err)

		builder.Register(Title, nil)
		assert.True(t, registry.Has(Title))
	})
}

func TestDefaultResolvers_Availability(t *testing.T) {
	registry, err := NewRegistryBuilder().WithDefaults(testDefaults()).Build()
	require.NoError(t, err)

	tests := []struct {
		name    string
		variant *models.Variant
		want    string
	}{
		{name: "in stock", variant: &models.Variant{CountOnHand: 2}, want: AvailabilityInStock},
		{name: "backorderable", variant: &models.Variant{Backorderable: true}, want: AvailabilityPreorder},
		{name: "out of stock", variant: &models.Variant{}, want: AvailabilityOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := registry.Resolve(tt.variant, Availability)
			require.True(t, ok)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestDefaultResolvers_ShippingWeight(t *testing.T) {
	registry, err := NewRegistryBuilder().WithDefaults(testDefaults()).Build()
	require.NoError(t, err)

	value, ok := registry.Resolve(&models.Variant{Weight: decimal.RequireFromString("1.5")}, ShippingWeight)
	require.True(t, ok)
	assert.Equal(t, "1.5 kg", value)

	_, ok = registry.Resolve(&models.Variant{}, ShippingWeight)
	assert.False(t, ok)
}
