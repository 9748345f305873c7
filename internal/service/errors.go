package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/afigueroah/shucway-app-main-sub002/internal/model"

	"github.com/google/uuid"
)

// Validation
var (
	ErrMontoInicialInvalido    = errors.New("el monto inicial debe ser mayor o igual a cero")
	ErrDenominacionDesconocida = errors.New("denominación no permitida")
	ErrConteoNegativo          = errors.New("la cantidad por denominación no puede ser negativa")
	ErrConteoFueraDeRango      = errors.New("el arqueo excede el máximo admitido")
)

// Invariants
var (
	ErrSesionYaAbierta = errors.New("ya existe una sesión de caja abierta")
	ErrSinSesionActiva = errors.New("no hay sesión de caja abierta")
	ErrSesionYaCerrada = errors.New("la sesión de caja ya fue cerrada")
)

// Close preconditions
var (
	ErrEfectivoNoContado        = errors.New("el efectivo debe contarse por denominación antes de cerrar")
	ErrTransferenciasPendientes = errors.New("hay transferencias sin verificar")
	ErrJustificacionRequerida   = errors.New("la diferencia de caja requiere observaciones")
)

// Unknown entities
var (
	ErrSesionNoEncontrada = errors.New("sesión de caja no encontrada")
	ErrVentaDesconocida   = errors.New("la venta no pertenece a las transferencias de la sesión")
)

// TransferenciasPendientesError lists the sales whose funds are not verified.
type TransferenciasPendientesError struct {
	VentaIDs []uuid.UUID
}

func (e *TransferenciasPendientesError) Error() string {
	ids := make([]string, len(e.VentaIDs))
	for i, id := range e.VentaIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrTransferenciasPendientes.Error(), strings.Join(ids, ", "))
}

func (e *TransferenciasPendientesError) Unwrap() error { return ErrTransferenciasPendientes }

// CodigoError returns a stable machine code for the known error kinds, or "".
func CodigoError(err error) string {
	switch {
	case errors.Is(err, ErrMontoInicialInvalido):
		return "monto_inicial_invalido"
	case errors.Is(err, ErrDenominacionDesconocida):
		return "denominacion_desconocida"
	case errors.Is(err, ErrConteoNegativo):
		return "conteo_negativo"
	case errors.Is(err, ErrConteoFueraDeRango):
		return "conteo_fuera_de_rango"
	case errors.Is(err, ErrSesionYaAbierta):
		return "sesion_ya_abierta"
	case errors.Is(err, ErrSinSesionActiva):
		return "sin_sesion_activa"
	case errors.Is(err, ErrSesionYaCerrada):
		return "sesion_ya_cerrada"
	case errors.Is(err, ErrEfectivoNoContado):
		return "efectivo_no_contado"
	case errors.Is(err, ErrTransferenciasPendientes):
		return "transferencias_pendientes"
	case errors.Is(err, ErrJustificacionRequerida):
		return "justificacion_requerida"
	case errors.Is(err, ErrSesionNoEncontrada):
		return "sesion_no_encontrada"
	case errors.Is(err, ErrVentaDesconocida):
		return "venta_desconocida"
	case errors.Is(err, model.ErrMetodoPagoInvalido):
		return "metodo_pago_invalido"
	default:
		return ""
	}
}
