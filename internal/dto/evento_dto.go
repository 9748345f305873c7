package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de evento de caja publicados en la cola de auditoría.
const (
	EventoApertura        = "apertura"
	EventoCierre          = "cierre"
	EventoExpiracion      = "expiracion"
	EventoReinicioForzado = "reinicio_forzado"
)

// EventoCaja is the audit record of one session transition.
type EventoCaja struct {
	Tipo             string           `json:"tipo"`
	SesionCajaID     string           `json:"sesion_caja_id"`
	Operador         string           `json:"operador,omitempty"`
	Fecha            time.Time        `json:"fecha"`
	MontoInicial     decimal.Decimal  `json:"monto_inicial"`
	EfectivoEsperado *decimal.Decimal `json:"efectivo_esperado,omitempty"`
	Diferencia       *decimal.Decimal `json:"diferencia,omitempty"`
	Observaciones    *string          `json:"observaciones,omitempty"`
	CierreAutomatico bool             `json:"cierre_automatico"`
}

// RequiereRevision is true for transitions a supervisor must review by hand.
func (e EventoCaja) RequiereRevision() bool {
	return e.Tipo == EventoExpiracion || e.Tipo == EventoReinicioForzado
}
