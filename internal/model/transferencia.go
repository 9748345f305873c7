package model

import (
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"github.com/google/uuid"
)

// EstadoTransferencia: "pendiente" (awaiting funds) | "recibida".
// Only an explicit verification action changes it.
type EstadoTransferencia string

const (
	TransferenciaPendiente EstadoTransferencia = "pendiente"
	TransferenciaRecibida  EstadoTransferencia = "recibida"
)

// VerificacionTransferencia tracks whether the funds of one transfer sale
// arrived. Rows live only while their session is open.
type VerificacionTransferencia struct {
	SesionCajaID       uuid.UUID           `gorm:"type:uuid;primaryKey"`
	VentaID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Monto              money.Money         `gorm:"column:monto_centavos;not null"`
	Estado             EstadoTransferencia `gorm:"type:varchar(20);not null;default:'pendiente'"`
	ReferenciaBancaria *string             `gorm:"type:varchar(80)"`
	Banco              *string             `gorm:"type:varchar(80)"`
	FechaVenta         time.Time           `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (VerificacionTransferencia) TableName() string { return "verificaciones_transferencia" }

func (v *VerificacionTransferencia) Recibida() bool { return v.Estado == TransferenciaRecibida }
