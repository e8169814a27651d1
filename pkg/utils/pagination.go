package utils

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination параметры страницы и итоговые счетчики
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPagination нормализует номер и размер страницы
func NewPagination(page, pageSize int) *Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// SetTotal устанавливает общее количество элементов и пересчитывает зависимые поля
func (p *Pagination) SetTotal(totalItems int64) {
	p.TotalItems = totalItems
	p.TotalPages = int((totalItems + int64(p.PageSize) - 1) / int64(p.PageSize))
	p.HasNext = p.Page < p.TotalPages
	p.HasPrev = p.Page > 1
}

// Offset смещение для SQL запроса
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit лимит для SQL запроса
func (p *Pagination) Limit() int {
	return p.PageSize
}

// PagedResult элементы страницы вместе с пагинацией
type PagedResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewPagedResult создает результат с пагинацией
func NewPagedResult[T any](items []T, pagination *Pagination) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PagedResult[T]{Items: items, Pagination: pagination}
}
