package models

// ErrorResponse - тело JSON-ответа об ошибке.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
