package services

import "fmt"

// MessageKind вид сообщения для администратора
type MessageKind int

const (
	MessageSuccess MessageKind = iota
	MessageError
)

// StatusMessage объединяет результаты локального сохранения и отправки в Google
// в одно сообщение. Ни один из результатов не теряется.
type StatusMessage struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Add добавляет сообщение по правилам слияния:
// однотипные сообщения склеиваются через ", ",
// успех после ошибки дописывается в ошибку,
// ошибка после успеха поглощает успех.
func (m *StatusMessage) Add(kind MessageKind, value string) {
	switch {
	case kind == MessageSuccess && m.Error != "":
		m.Error = fmt.Sprintf("(Error) %s ; (Success) %s", m.Error, value)
	case kind == MessageError && m.Success != "":
		success := m.Success
		m.Success = ""
		m.Error = fmt.Sprintf("(Error) %s; (Success) %s", value, success)
	case kind == MessageSuccess && m.Success != "":
		m.Success += ", " + value
	case kind == MessageError && m.Error != "":
		m.Error += ", " + value
	case kind == MessageSuccess:
		m.Success = value
	default:
		m.Error = value
	}
}

// OK сообщает, что ошибок не было
func (m StatusMessage) OK() bool {
	return m.Error == ""
}
