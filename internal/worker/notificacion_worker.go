package worker

// notificacion_worker.go
// Consumes caja lifecycle events. Every event is logged as the audit trail;
// sessions that ended without a human count (expiry, forced reset) are also
// mailed to the supervisor for manual review.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/infra"
	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"github.com/rs/zerolog/log"
)

// Avisador sends a plain-text notice; *infra.Mailer implements it.
type Avisador interface {
	SendAviso(to, subject, body string) error
}

type NotificacionWorker struct {
	mailer     Avisador
	supervisor string
	simbolo    string
}

func NewNotificacionWorker(mailer Avisador, supervisorEmail, simboloMoneda string) *NotificacionWorker {
	return &NotificacionWorker{mailer: mailer, supervisor: supervisorEmail, simbolo: simboloMoneda}
}

func (w *NotificacionWorker) Process(_ context.Context, raw json.RawMessage) error {
	var evento dto.EventoCaja
	if err := json.Unmarshal(raw, &evento); err != nil {
		return &ErrPermanente{Err: fmt.Errorf("notificacion_worker: payload inválido: %w", err)}
	}

	log.Info().
		Str("tipo", evento.Tipo).
		Str("sesion_caja_id", evento.SesionCajaID).
		Str("operador", evento.Operador).
		Time("fecha", evento.Fecha).
		Bool("cierre_automatico", evento.CierreAutomatico).
		Msg("caja: evento de auditoría")

	if !evento.RequiereRevision() {
		return nil
	}
	if w.supervisor == "" {
		log.Warn().Str("sesion_caja_id", evento.SesionCajaID).Msg("notificacion_worker: SUPERVISOR_EMAIL vacío, aviso omitido")
		return nil
	}

	err := w.mailer.SendAviso(w.supervisor, asunto(evento), w.cuerpo(evento))
	if errors.Is(err, infra.ErrMailerSinConfigurar) {
		log.Warn().Str("sesion_caja_id", evento.SesionCajaID).Msg("notificacion_worker: SMTP sin configurar, aviso omitido")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("to", w.supervisor).Str("sesion_caja_id", evento.SesionCajaID).Msg("notificacion_worker: aviso enviado")
	return nil
}

func asunto(e dto.EventoCaja) string {
	if e.Tipo == dto.EventoReinicioForzado {
		return "Caja: reinicio forzado de sesión " + e.SesionCajaID
	}
	return "Caja: sesión expirada " + e.SesionCajaID
}

func (w *NotificacionWorker) cuerpo(e dto.EventoCaja) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sesión de caja: %s\n", e.SesionCajaID)
	fmt.Fprintf(&b, "Evento: %s\n", e.Tipo)
	fmt.Fprintf(&b, "Fecha: %s\n", e.Fecha.Format("2006-01-02 15:04:05 MST"))
	if e.Operador != "" {
		fmt.Fprintf(&b, "Operador: %s\n", e.Operador)
	}
	fmt.Fprintf(&b, "Monto inicial: %s\n", w.formato(e.MontoInicial.String()))
	if e.EfectivoEsperado != nil {
		fmt.Fprintf(&b, "Efectivo esperado: %s\n", w.formato(e.EfectivoEsperado.String()))
	}
	if e.Observaciones != nil {
		fmt.Fprintf(&b, "Observaciones: %s\n", *e.Observaciones)
	}
	b.WriteString("\nLa sesión terminó sin arqueo del cajero y requiere revisión manual.\n")
	return b.String()
}

func (w *NotificacionWorker) formato(monto string) string {
	m, err := money.Parse(monto)
	if err != nil {
		return monto
	}
	return m.Format(w.simbolo)
}
