package model

import (
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EstadoSesion: "abierta" | "cerrada" | "expirada". Cerrada and expirada are terminal.
type EstadoSesion string

const (
	EstadoAbierta  EstadoSesion = "abierta"
	EstadoCerrada  EstadoSesion = "cerrada"
	EstadoExpirada EstadoSesion = "expirada"
)

// SesionCaja is one till-open period. At most one row may be "abierta" at any
// time; the partial unique index uq_sesiones_caja_abierta enforces it in Postgres.
type SesionCaja struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AbiertaPor uuid.UUID  `gorm:"type:uuid;not null"`
	CerradaPor *uuid.UUID `gorm:"type:uuid"`
	OpenedAt   time.Time  `gorm:"not null;index"`
	ClosedAt   *time.Time

	MontoInicial money.Money  `gorm:"column:monto_inicial_centavos;not null"`
	Estado       EstadoSesion `gorm:"type:varchar(20);not null;default:'abierta';index"`
	MontoContado *money.Money `gorm:"column:monto_contado_centavos"`
	// Observaciones are mandatory when Diferencia != 0.
	Observaciones *string

	// CierreAutomatico is true when the session ended by expiry or forced reset.
	CierreAutomatico bool `gorm:"not null;default:false"`
	ReinicioForzado  bool `gorm:"not null;default:false"`

	// Reconciliation snapshot, written once when the session ends.
	EfectivoEsperado          *money.Money `gorm:"column:efectivo_esperado_centavos"`
	TransferenciasEsperadas   *money.Money `gorm:"column:transferencias_esperadas_centavos"`
	TransferenciasVerificadas *money.Money `gorm:"column:transferencias_verificadas_centavos"`
	Diferencia                *money.Money `gorm:"column:diferencia_centavos"`

	// DesgloseArqueo keeps the applied denomination breakdown for audit.
	DesgloseArqueo datatypes.JSON `gorm:"column:desglose_arqueo"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

func (s *SesionCaja) Abierta() bool { return s.Estado == EstadoAbierta }

// Conciliacion is the computed reconciliation embedded in an ended session.
type Conciliacion struct {
	EfectivoEsperado          money.Money `json:"efectivo_esperado"`
	EfectivoContado           money.Money `json:"efectivo_contado"`
	TransferenciasEsperadas   money.Money `json:"transferencias_esperadas"`
	TransferenciasVerificadas money.Money `json:"transferencias_verificadas"`
	Diferencia                money.Money `json:"diferencia"`
	RequiereJustificacion     bool        `json:"requiere_justificacion"`
}

// Conciliar computes the reconciliation for a counted amount.
func Conciliar(montoInicial, ventasEfectivo, contado, transfEsperadas, transfVerificadas money.Money) Conciliacion {
	esperado := montoInicial.Add(ventasEfectivo)
	diferencia := contado.Sub(esperado)
	return Conciliacion{
		EfectivoEsperado:          esperado,
		EfectivoContado:           contado,
		TransferenciasEsperadas:   transfEsperadas,
		TransferenciasVerificadas: transfVerificadas,
		Diferencia:                diferencia,
		RequiereJustificacion:     !diferencia.IsZero(),
	}
}

// AplicarConciliacion copies c onto the persisted columns.
func (s *SesionCaja) AplicarConciliacion(c Conciliacion) {
	esperado, contado := c.EfectivoEsperado, c.EfectivoContado
	te, tv, dif := c.TransferenciasEsperadas, c.TransferenciasVerificadas, c.Diferencia
	s.EfectivoEsperado = &esperado
	s.MontoContado = &contado
	s.TransferenciasEsperadas = &te
	s.TransferenciasVerificadas = &tv
	s.Diferencia = &dif
}

// Conciliacion rebuilds the reconciliation from the stored columns; nil while
// the session is open or when it was force-reset without a count.
func (s *SesionCaja) Conciliacion() *Conciliacion {
	if s.EfectivoEsperado == nil || s.MontoContado == nil || s.Diferencia == nil {
		return nil
	}
	c := Conciliacion{
		EfectivoEsperado:      *s.EfectivoEsperado,
		EfectivoContado:       *s.MontoContado,
		Diferencia:            *s.Diferencia,
		RequiereJustificacion: !s.Diferencia.IsZero(),
	}
	if s.TransferenciasEsperadas != nil {
		c.TransferenciasEsperadas = *s.TransferenciasEsperadas
	}
	if s.TransferenciasVerificadas != nil {
		c.TransferenciasVerificadas = *s.TransferenciasVerificadas
	}
	return &c
}
