// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Codigo is a stable machine code for caja rule violations; VentaIDs lists the
// sales that block a close.
type APIError struct {
	Detail   string   `json:"detail"`
	Codigo   string   `json:"codigo,omitempty"`
	VentaIDs []string `json:"venta_ids,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewCodigo builds an envelope that carries a machine-readable code.
func NewCodigo(msg, codigo string) *APIError {
	return &APIError{Detail: msg, Codigo: codigo}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
