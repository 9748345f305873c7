package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"github.com/google/uuid"
)

// MetodoPago is the closed set of payment methods the engine understands.
type MetodoPago string

const (
	MetodoEfectivo      MetodoPago = "efectivo"
	MetodoTransferencia MetodoPago = "transferencia"
	MetodoTarjeta       MetodoPago = "tarjeta"
)

var ErrMetodoPagoInvalido = errors.New("método de pago desconocido")

// ParseMetodoPago validates a raw method string from the sales store.
// "debito" and "credito" are legacy card labels.
func ParseMetodoPago(raw string) (MetodoPago, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "efectivo":
		return MetodoEfectivo, nil
	case "transferencia":
		return MetodoTransferencia, nil
	case "tarjeta", "debito", "credito":
		return MetodoTarjeta, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrMetodoPagoInvalido, raw)
	}
}

// VentaLedger is one confirmed sale as seen by the caja engine: the amount a
// sale paid through a single method. The sale itself is owned elsewhere.
type VentaLedger struct {
	VentaID uuid.UUID
	Metodo  MetodoPago
	Monto   money.Money
	Fecha   time.Time
}

// TotalesPorMetodo sums ventas per payment method.
type TotalesPorMetodo struct {
	Efectivo      money.Money
	Transferencia money.Money
	Tarjeta       money.Money
	Cantidad      int
}

func (t TotalesPorMetodo) Total() money.Money {
	return money.Sum(t.Efectivo, t.Transferencia, t.Tarjeta)
}

// Totalizar aggregates ledger rows; every addition is integer cents.
func Totalizar(ventas []VentaLedger) TotalesPorMetodo {
	var t TotalesPorMetodo
	vistas := make(map[uuid.UUID]struct{}, len(ventas))
	for _, v := range ventas {
		switch v.Metodo {
		case MetodoEfectivo:
			t.Efectivo = t.Efectivo.Add(v.Monto)
		case MetodoTransferencia:
			t.Transferencia = t.Transferencia.Add(v.Monto)
		case MetodoTarjeta:
			t.Tarjeta = t.Tarjeta.Add(v.Monto)
		}
		vistas[v.VentaID] = struct{}{}
	}
	t.Cantidad = len(vistas)
	return t
}
