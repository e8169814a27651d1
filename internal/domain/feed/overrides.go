package feed

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidOverride значение переопределения не приводится к типу атрибута
var ErrInvalidOverride = errors.New("invalid feed attribute override")

// CoerceOverride приводит строковое переопределение к типу, в котором атрибут
// уходит в Content API: цены числом, флаги bool, списки массивом.
// false означает, что после приведения значения нет.
func CoerceOverride(name, raw string) (any, bool, error) {
	switch name {
	case Price, SalePrice:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidOverride, name, err)
		}
		return d, true, nil
	case IdentifierExists, Adult, IsBundle:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidOverride, name, err)
		}
		return b, true, nil
	case AdditionalImageLink, AdwordsLabels:
		items := splitList(raw)
		if len(items) == 0 {
			return nil, false, nil
		}
		return items, true, nil
	default:
		return raw, true, nil
	}
}

// InvalidOverrides возвращает имена атрибутов, значения которых не приводятся к типу.
// Пустое значение снимает переопределение и не проверяется.
func InvalidOverrides(overrides map[string]string) []string {
	var invalid []string
	for name, raw := range overrides {
		if raw == "" {
			continue
		}
		if _, _, err := CoerceOverride(name, raw); err != nil {
			invalid = append(invalid, name)
		}
	}
	sort.Strings(invalid)
	return invalid
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
