package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Field пара ключ-значение выгружаемого атрибута
type Field struct {
	Key   string
	Value any
}

// Payload упорядоченный набор атрибутов товара.
// Атрибуты без значения в нем отсутствуют.
type Payload struct {
	fields []Field
	index  map[string]int
}

func newPayload(capacity int) *Payload {
	return &Payload{
		fields: make([]Field, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

func (p *Payload) add(key string, value any) {
	p.index[key] = len(p.fields)
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// Get возвращает значение атрибута по ключу
func (p *Payload) Get(key string) (any, bool) {
	i, ok := p.index[key]
	if !ok {
		return nil, false
	}
	return p.fields[i].Value, true
}

// Keys возвращает ключи в порядке набора полей
func (p *Payload) Keys() []string {
	keys := make([]string, len(p.fields))
	for i, f := range p.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields возвращает копию пар ключ-значение
func (p *Payload) Fields() []Field {
	fields := make([]Field, len(p.fields))
	copy(fields, p.fields)
	return fields
}

// Len количество атрибутов
func (p *Payload) Len() int {
	return len(p.fields)
}

// MarshalJSON сериализует объект с сохранением порядка ключей
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attribute %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue кодирует суммы числом, а не строкой
func marshalValue(v any) ([]byte, error) {
	if d, ok := v.(decimal.Decimal); ok {
		return []byte(d.String()), nil
	}
	return json.Marshal(v)
}

// Mapper строит набор атрибутов фида из локальной записи
type Mapper struct {
	registry *Registry
}

// NewMapper создает Mapper поверх собранного реестра
func NewMapper(registry *Registry) *Mapper {
	return &Mapper{registry: registry}
}

// Attributes возвращает атрибуты записи. При wire=true ключи переводятся
// в формат Content API. Локальные переопределения записи важнее резолверов.
func (m *Mapper) Attributes(p *models.GoogleProduct, wire bool) *Payload {
	payload := newPayload(len(fieldSet))
	for _, name := range fieldSet {
		value, ok := m.valueOf(p, name)
		if !ok {
			continue
		}
		key := name
		if wire {
			key = WireName(name)
		}
		payload.add(key, value)
	}
	return payload
}

// AttributesJSON возвращает атрибуты в формате Content API
func (m *Mapper) AttributesJSON(p *models.GoogleProduct) ([]byte, error) {
	return m.Attributes(p, true).MarshalJSON()
}

func (m *Mapper) valueOf(p *models.GoogleProduct, name string) (any, bool) {
	if raw, ok := p.AttributeOverrides[name]; ok {
		// непреобразуемое значение не выгружается, остается вычисленное
		if value, present, err := CoerceOverride(name, raw); err == nil {
			return value, present
		}
	}
	return m.registry.Resolve(p.Variant, name)
}
