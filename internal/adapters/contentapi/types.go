package contentapi

import (
	"encoding/json"
)

// Reason и message, которыми Google помечает недействительный access token
const (
	ReasonAuthError           = "authError"
	MessageInvalidCredentials = "Invalid Credentials"
)

// ErrorEntry одна ошибка из списка error.errors ответа Content API
type ErrorEntry struct {
	Domain       string `json:"domain,omitempty"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	Location     string `json:"location,omitempty"`
	LocationType string `json:"locationType,omitempty"`
}

// IsInvalidCredentials сообщает, что ошибка вызвана недействительным токеном
func (e ErrorEntry) IsInvalidCredentials() bool {
	return e.Reason == ReasonAuthError && e.Message == MessageInvalidCredentials
}

// ErrorDetail структура поля error ответа
type ErrorDetail struct {
	Code    int          `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []ErrorEntry `json:"errors"`
}

// Response результат вызова Content API.
// Error равен nil, если тело не содержит структурированной ошибки
// (в том числе если тело не удалось разобрать).
type Response struct {
	StatusCode int
	Data       json.RawMessage
	Error      *ErrorDetail
}

// Errors возвращает список ошибок верхнего уровня
func (r *Response) Errors() []ErrorEntry {
	if r == nil || r.Error == nil {
		return nil
	}
	return r.Error.Errors
}

// HasErrors сообщает, содержит ли ответ непустой список ошибок
func (r *Response) HasErrors() bool {
	return len(r.Errors()) > 0
}

// FindError возвращает первую ошибку, удовлетворяющую условию
func (r *Response) FindError(match func(ErrorEntry) bool) (ErrorEntry, bool) {
	for _, e := range r.Errors() {
		if match(e) {
			return e, true
		}
	}
	return ErrorEntry{}, false
}

// ProductID возвращает id товара из тела ответа, если он там есть
func (r *Response) ProductID() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	var product struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(r.Data, &product); err != nil {
		return ""
	}
	return product.ID
}

// ParseResponse разбирает тело ответа; нераспознанное тело не считается ошибкой
func ParseResponse(statusCode int, body []byte) *Response {
	resp := &Response{
		StatusCode: statusCode,
		Data:       json.RawMessage(body),
	}
	if len(body) == 0 {
		return resp
	}

	var envelope struct {
		Error *ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return resp
	}
	resp.Error = envelope.Error
	return resp
}
