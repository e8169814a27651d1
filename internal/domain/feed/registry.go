package feed

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
)

// ErrUnknownAttribute возвращается при попытке работать с атрибутом вне набора полей фида
var ErrUnknownAttribute = errors.New("unknown feed attribute")

// ResolverFunc вычисляет значение атрибута для варианта.
// false означает, что значения нет и атрибут не попадет в выгрузку.
type ResolverFunc func(v *models.Variant) (any, bool)

// Registry неизменяемый набор резолверов атрибутов.
// Собирается один раз при старте через RegistryBuilder и дальше только читается.
type Registry struct {
	resolvers map[string]ResolverFunc
}

// Resolve возвращает значение атрибута для варианта
func (r *Registry) Resolve(v *models.Variant, name string) (any, bool) {
	if r == nil || v == nil {
		return nil, false
	}
	fn, ok := r.resolvers[name]
	if !ok {
		return nil, false
	}
	value, ok := fn(v)
	if !ok || isNil(value) {
		return nil, false
	}
	return value, true
}

// isNil ловит и типизированный nil внутри any: (*string)(nil), []string(nil) и т.п.
func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Has сообщает, зарегистрирован ли резолвер для атрибута
func (r *Registry) Has(name string) bool {
	_, ok := r.resolvers[name]
	return ok
}

// RegistryBuilder накапливает регистрации резолверов до вызова Build
type RegistryBuilder struct {
	resolvers map[string]ResolverFunc
	errs      []error
}

// NewRegistryBuilder создает пустой построитель реестра
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		resolvers: make(map[string]ResolverFunc),
	}
}

// WithDefaults регистрирует встроенные резолверы.
// Регистрации, сделанные после вызова, переопределяют встроенные.
func (b *RegistryBuilder) WithDefaults(d Defaults) *RegistryBuilder {
	for name, fn := range defaultResolvers(d) {
		b.resolvers[name] = fn
	}
	return b
}

// Register добавляет или переопределяет резолвер атрибута.
// nil отключает атрибут.
func (b *RegistryBuilder) Register(name string, fn ResolverFunc) *RegistryBuilder {
	if !IsKnown(name) {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrUnknownAttribute, name))
		return b
	}
	if fn == nil {
		delete(b.resolvers, name)
		return b
	}
	b.resolvers[name] = fn
	return b
}

// Build возвращает реестр; ошибки регистрации собираются в одну
func (b *RegistryBuilder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	resolvers := make(map[string]ResolverFunc, len(b.resolvers))
	for name, fn := range b.resolvers {
		resolvers[name] = fn
	}
	return &Registry{resolvers: resolvers}, nil
}
