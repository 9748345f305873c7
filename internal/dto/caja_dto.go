package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AbrirCajaRequest: sign and precision of MontoInicial are checked by the
// service so the client gets the monto_inicial_invalido code.
type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial"`
}

// ConteoDenominaciones maps a face value ("100", "0.25") to a count.
type ConteoDenominaciones map[string]int

// CerrarCajaRequest carries the arqueo applied at close. Conteo is mandatory;
// MontoContado, when sent, must equal the breakdown total.
type CerrarCajaRequest struct {
	Conteo        ConteoDenominaciones `json:"conteo"`
	MontoContado  *decimal.Decimal     `json:"monto_contado"`
	Observaciones *string              `json:"observaciones" validate:"omitempty,max=1000"`
}

type TotalArqueoRequest struct {
	Conteo ConteoDenominaciones `json:"conteo" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineaArqueoResponse struct {
	Denominacion decimal.Decimal `json:"denominacion"`
	Cantidad     int             `json:"cantidad"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type TotalArqueoResponse struct {
	Lineas []LineaArqueoResponse `json:"lineas"`
	Total  decimal.Decimal       `json:"total"`
}

type ConciliacionResponse struct {
	EfectivoEsperado          decimal.Decimal `json:"efectivo_esperado"`
	EfectivoContado           decimal.Decimal `json:"efectivo_contado"`
	TransferenciasEsperadas   decimal.Decimal `json:"transferencias_esperadas"`
	TransferenciasVerificadas decimal.Decimal `json:"transferencias_verificadas"`
	Diferencia                decimal.Decimal `json:"diferencia"`
	RequiereJustificacion     bool            `json:"requiere_justificacion"`
}

type SesionCajaResponse struct {
	SesionCajaID     string                `json:"sesion_caja_id"`
	AbiertaPor       string                `json:"abierta_por"`
	CerradaPor       *string               `json:"cerrada_por"`
	MontoInicial     decimal.Decimal       `json:"monto_inicial"`
	Estado           string                `json:"estado"` // abierta | cerrada | expirada
	MontoContado     *decimal.Decimal      `json:"monto_contado"`
	Observaciones    *string               `json:"observaciones"`
	CierreAutomatico bool                  `json:"cierre_automatico"`
	ReinicioForzado  bool                  `json:"reinicio_forzado"`
	OpenedAt         string                `json:"opened_at"`
	ClosedAt         *string               `json:"closed_at"`
	Conciliacion     *ConciliacionResponse `json:"conciliacion"`
}

// EstadoCajaResponse answers "can sales be taken right now?". Expirada is true
// when nothing is open and the last session ended by expiry.
type EstadoCajaResponse struct {
	Abierta  bool                `json:"abierta"`
	Sesion   *SesionCajaResponse `json:"sesion"`
	Expirada bool                `json:"expirada"`
}

type ResumenVentasResponse struct {
	SesionCajaID   string          `json:"sesion_caja_id"`
	Desde          string          `json:"desde"`
	Hasta          string          `json:"hasta"`
	Efectivo       decimal.Decimal `json:"efectivo"`
	Transferencia  decimal.Decimal `json:"transferencia"`
	Tarjeta        decimal.Decimal `json:"tarjeta"`
	Total          decimal.Decimal `json:"total"`
	CantidadVentas int             `json:"cantidad_ventas"`
}
