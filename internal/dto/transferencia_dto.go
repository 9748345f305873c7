package dto

import "github.com/shopspring/decimal"

type CambiarEstadoTransferenciaRequest struct {
	Estado string `json:"estado" validate:"required,oneof=pendiente recibida"`
}

type ActualizarReferenciaRequest struct {
	ReferenciaBancaria *string `json:"referencia_bancaria" validate:"omitempty,max=80"`
	Banco              *string `json:"banco"               validate:"omitempty,max=80"`
}

type TransferenciaResponse struct {
	VentaID            string          `json:"venta_id"`
	Monto              decimal.Decimal `json:"monto"`
	Estado             string          `json:"estado"` // pendiente | recibida
	ReferenciaBancaria *string         `json:"referencia_bancaria"`
	Banco              *string         `json:"banco"`
	FechaVenta         string          `json:"fecha_venta"`
}

type TransferenciasSesionResponse struct {
	SesionCajaID    string                  `json:"sesion_caja_id"`
	Transferencias  []TransferenciaResponse `json:"transferencias"`
	TotalEsperado   decimal.Decimal         `json:"total_esperado"`
	TotalVerificado decimal.Decimal         `json:"total_verificado"`
	Pendientes      int                     `json:"pendientes"`
}
