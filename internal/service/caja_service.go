package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/money"
	"github.com/afigueroah/shucway-app-main-sub002/internal/observability/metrics"
	"github.com/afigueroah/shucway-app-main-sub002/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	notaExpiracion      = "Cierre automático por antigüedad máxima de sesión; requiere revisión manual"
	notaReinicioForzado = "Reinicio forzado por administrador"
)

type CajaService interface {
	Abrir(ctx context.Context, operadorID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, operadorID uuid.UUID, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error)
	// ReiniciarForzado returns (nil, nil) when no session was open.
	ReiniciarForzado(ctx context.Context, operadorID uuid.UUID) (*dto.SesionCajaResponse, error)
	// ExpirarVencidas returns how many sessions it expired (0 or 1).
	ExpirarVencidas(ctx context.Context) (int, error)
	EstadoActual(ctx context.Context) (*dto.EstadoCajaResponse, error)
	// SesionAbierta is the guard sale-entry components call before a sale.
	SesionAbierta(ctx context.Context) (*model.SesionCaja, error)
	ResumenVentas(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenVentasResponse, error)
	ObtenerSesion(ctx context.Context, sesionID uuid.UUID) (*dto.SesionCajaResponse, error)
	Historial(ctx context.Context, page, limit int) ([]dto.SesionCajaResponse, int64, error)
	TotalArqueo(req dto.TotalArqueoRequest) (*dto.TotalArqueoResponse, error)
}

// PublicadorEventos receives an audit event after each committed transition.
type PublicadorEventos interface {
	PublicarEventoCaja(ctx context.Context, evento dto.EventoCaja) error
}

// Opciones tunes the engine; zero values fall back to defaults.
type Opciones struct {
	MaxEdadSesion  time.Duration
	Denominaciones []money.Money
	Ahora          func() time.Time
}

type cajaService struct {
	// mu serializes every transition of the single open-session slot.
	mu sync.Mutex

	repo           repository.CajaRepository
	ledger         repository.VentaLedger
	transferencias *transferenciaService
	contador       *ContadorDenominaciones
	publicador     PublicadorEventos
	maxEdad        time.Duration
	ahora          func() time.Time
}

func NewCajaService(
	repo repository.CajaRepository,
	transferRepo repository.TransferenciaRepository,
	ledger repository.VentaLedger,
	publicador PublicadorEventos,
	opts Opciones,
) CajaService {
	if opts.Ahora == nil {
		opts.Ahora = time.Now
	}
	if opts.MaxEdadSesion <= 0 {
		opts.MaxEdadSesion = 24 * time.Hour
	}
	return &cajaService{
		repo:           repo,
		ledger:         ledger,
		transferencias: newTransferenciaService(repo, transferRepo, ledger, opts.Ahora),
		contador:       NewContadorDenominaciones(opts.Denominaciones),
		publicador:     publicador,
		maxEdad:        opts.MaxEdadSesion,
		ahora:          opts.Ahora,
	}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, operadorID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	montoInicial, err := money.FromDecimal(req.MontoInicial)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMontoInicialInvalido, err)
	}
	if montoInicial.IsNegative() {
		return nil, ErrMontoInicialInvalido
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ahora := s.ahora()
	existente, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if existente != nil {
		if !s.vencida(existente, ahora) {
			return nil, ErrSesionYaAbierta
		}
		// A stale session found on open is expired first, then the slot is free.
		if _, err := s.expirarLocked(ctx, existente, ahora); err != nil {
			return nil, err
		}
	}

	sesion := &model.SesionCaja{
		ID:           uuid.New(),
		AbiertaPor:   operadorID,
		OpenedAt:     ahora,
		MontoInicial: montoInicial,
		Estado:       model.EstadoAbierta,
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		if errors.Is(err, repository.ErrSesionAbiertaDuplicada) {
			return nil, ErrSesionYaAbierta
		}
		return nil, err
	}

	metrics.SesionAbierta()
	log.Info().
		Str("sesion_caja_id", sesion.ID.String()).
		Str("operador", operadorID.String()).
		Str("monto_inicial", montoInicial.String()).
		Msg("caja: sesión abierta")
	s.publicar(ctx, sesion, dto.EventoApertura, operadorID.String())

	return sesionToResponse(sesion), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Preconditions, in order: open session, applied arqueo, every transfer
// verified, observations when the difference is not zero. A rejected close
// leaves the session untouched.

func (s *cajaService) Cerrar(ctx context.Context, operadorID uuid.UUID, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, s.rechazo(ErrSinSesionActiva)
	}

	if req.Conteo == nil {
		return nil, s.rechazo(ErrEfectivoNoContado)
	}
	desglose, err := s.contador.Validar(req.Conteo)
	if err != nil {
		return nil, s.rechazo(err)
	}
	contado := desglose.Total()
	if req.MontoContado != nil {
		declarado, err := money.FromDecimal(*req.MontoContado)
		if err != nil || declarado != contado {
			return nil, s.rechazo(fmt.Errorf("%w: el monto %s no coincide con el arqueo %s",
				ErrEfectivoNoContado, req.MontoContado.String(), contado.String()))
		}
	}

	ahora := s.ahora()
	ventas, err := s.ledger.VentasEnVentana(ctx, sesion.OpenedAt, ahora)
	if err != nil {
		return nil, err
	}
	verificaciones, err := s.transferencias.sincronizar(ctx, sesion, ventas)
	if err != nil {
		return nil, err
	}
	if ids := pendientes(verificaciones); len(ids) > 0 {
		return nil, s.rechazo(&TransferenciasPendientesError{VentaIDs: ids})
	}

	totales := model.Totalizar(ventas)
	_, verificado := totalesTransferencias(verificaciones)
	conciliacion := model.Conciliar(sesion.MontoInicial, totales.Efectivo, contado, totales.Transferencia, verificado)

	observaciones := limpiarObservaciones(req.Observaciones)
	if conciliacion.RequiereJustificacion && observaciones == nil {
		return nil, s.rechazo(ErrJustificacionRequerida)
	}

	auditoria, err := desglose.JSON()
	if err != nil {
		return nil, err
	}

	cerrada := *sesion
	cerrada.Estado = model.EstadoCerrada
	cerrada.CerradaPor = &operadorID
	cerrada.ClosedAt = &ahora
	cerrada.Observaciones = observaciones
	cerrada.DesgloseArqueo = auditoria
	cerrada.AplicarConciliacion(conciliacion)

	recibidas := make([]uuid.UUID, len(verificaciones))
	for i := range verificaciones {
		recibidas[i] = verificaciones[i].VentaID
	}
	if err := s.repo.FinalizarSesion(ctx, &cerrada, recibidas); err != nil {
		switch {
		case errors.Is(err, repository.ErrSesionNoAbierta):
			return nil, s.rechazo(ErrSesionYaCerrada)
		case errors.Is(err, repository.ErrVerificacionPendiente):
			return nil, s.rechazo(s.transferencias.pendientesActuales(ctx, sesion.ID, recibidas))
		}
		return nil, err
	}

	metrics.SesionCerrada(conciliacion.Diferencia)
	log.Info().
		Str("sesion_caja_id", cerrada.ID.String()).
		Str("operador", operadorID.String()).
		Str("efectivo_esperado", conciliacion.EfectivoEsperado.String()).
		Str("efectivo_contado", conciliacion.EfectivoContado.String()).
		Str("diferencia", conciliacion.Diferencia.String()).
		Msg("caja: sesión cerrada")
	s.publicar(ctx, &cerrada, dto.EventoCierre, operadorID.String())

	return sesionToResponse(&cerrada), nil
}

// ── ReiniciarForzado ──────────────────────────────────────────────────────────
// Administrative escape hatch: ends the open session without preconditions.

func (s *cajaService) ReiniciarForzado(ctx context.Context, operadorID uuid.UUID) (*dto.SesionCajaResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, nil
	}

	ahora := s.ahora()
	nota := notaReinicioForzado
	cerrada := *sesion
	cerrada.Estado = model.EstadoCerrada
	cerrada.CerradaPor = &operadorID
	cerrada.ClosedAt = &ahora
	cerrada.CierreAutomatico = true
	cerrada.ReinicioForzado = true
	cerrada.Observaciones = &nota

	if err := s.repo.FinalizarSesion(ctx, &cerrada, nil); err != nil {
		if errors.Is(err, repository.ErrSesionNoAbierta) {
			return nil, nil
		}
		return nil, err
	}

	metrics.ReinicioForzado()
	log.Warn().
		Str("evento", dto.EventoReinicioForzado).
		Str("sesion_caja_id", cerrada.ID.String()).
		Str("operador", operadorID.String()).
		Time("opened_at", cerrada.OpenedAt).
		Msg("caja: reinicio forzado de sesión")
	s.publicar(ctx, &cerrada, dto.EventoReinicioForzado, operadorID.String())

	return sesionToResponse(&cerrada), nil
}

// ── Expiración ────────────────────────────────────────────────────────────────

func (s *cajaService) ExpirarVencidas(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil || sesion == nil {
		return 0, err
	}
	ahora := s.ahora()
	if !s.vencida(sesion, ahora) {
		return 0, nil
	}
	ok, err := s.expirarLocked(ctx, sesion, ahora)
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}

// vencida: a session opened at t0 is stale from t0+maxEdad on.
func (s *cajaService) vencida(sesion *model.SesionCaja, ahora time.Time) bool {
	return ahora.Sub(sesion.OpenedAt) >= s.maxEdad
}

// expirarLocked records the counted cash as the expected cash (nobody can
// recount after the fact) and marks the session "expirada". Returns false
// when a concurrent transition ended the session first. Caller holds s.mu.
func (s *cajaService) expirarLocked(ctx context.Context, sesion *model.SesionCaja, ahora time.Time) (bool, error) {
	ventas, err := s.ledger.VentasEnVentana(ctx, sesion.OpenedAt, ahora)
	if err != nil {
		return false, fmt.Errorf("expirar sesión %s: %w", sesion.ID, err)
	}
	verificaciones, err := s.transferencias.sincronizar(ctx, sesion, ventas)
	if err != nil {
		return false, fmt.Errorf("expirar sesión %s: %w", sesion.ID, err)
	}

	totales := model.Totalizar(ventas)
	_, verificado := totalesTransferencias(verificaciones)
	esperado := sesion.MontoInicial.Add(totales.Efectivo)
	conciliacion := model.Conciliar(sesion.MontoInicial, totales.Efectivo, esperado, totales.Transferencia, verificado)

	nota := notaExpiracion
	expirada := *sesion
	expirada.Estado = model.EstadoExpirada
	expirada.ClosedAt = &ahora
	expirada.CierreAutomatico = true
	expirada.Observaciones = &nota
	expirada.AplicarConciliacion(conciliacion)

	if err := s.repo.FinalizarSesion(ctx, &expirada, nil); err != nil {
		if errors.Is(err, repository.ErrSesionNoAbierta) {
			return false, nil
		}
		return false, err
	}

	metrics.SesionExpirada()
	log.Warn().
		Str("evento", dto.EventoExpiracion).
		Str("sesion_caja_id", expirada.ID.String()).
		Time("opened_at", expirada.OpenedAt).
		Dur("max_edad", s.maxEdad).
		Str("efectivo_esperado", esperado.String()).
		Msg("caja: sesión expirada por antigüedad")
	s.publicar(ctx, &expirada, dto.EventoExpiracion, "")
	return true, nil
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *cajaService) EstadoActual(ctx context.Context) (*dto.EstadoCajaResponse, error) {
	sesion, err := s.sesionVigente(ctx)
	if err != nil {
		return nil, err
	}
	if sesion != nil {
		return &dto.EstadoCajaResponse{Abierta: true, Sesion: sesionToResponse(sesion)}, nil
	}

	ultima, err := s.repo.FindUltimaSesion(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.EstadoCajaResponse{
		Abierta:  false,
		Expirada: ultima != nil && ultima.Estado == model.EstadoExpirada,
	}, nil
}

func (s *cajaService) SesionAbierta(ctx context.Context) (*model.SesionCaja, error) {
	sesion, err := s.sesionVigente(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinSesionActiva
	}
	return sesion, nil
}

// sesionVigente returns the open session, expiring it first when it is stale.
func (s *cajaService) sesionVigente(ctx context.Context) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil || sesion == nil {
		return nil, err
	}
	if !s.vencida(sesion, s.ahora()) {
		return sesion, nil
	}
	if _, err := s.ExpirarVencidas(ctx); err != nil {
		return nil, err
	}
	return s.repo.FindSesionAbierta(ctx)
}

func (s *cajaService) ResumenVentas(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenVentasResponse, error) {
	sesion, err := s.buscar(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	hasta := s.ahora()
	if sesion.ClosedAt != nil {
		hasta = *sesion.ClosedAt
	}
	ventas, err := s.ledger.VentasEnVentana(ctx, sesion.OpenedAt, hasta)
	if err != nil {
		return nil, err
	}
	totales := model.Totalizar(ventas)
	return &dto.ResumenVentasResponse{
		SesionCajaID:   sesion.ID.String(),
		Desde:          formatTime(sesion.OpenedAt),
		Hasta:          formatTime(hasta),
		Efectivo:       totales.Efectivo.Decimal(),
		Transferencia:  totales.Transferencia.Decimal(),
		Tarjeta:        totales.Tarjeta.Decimal(),
		Total:          totales.Total().Decimal(),
		CantidadVentas: totales.Cantidad,
	}, nil
}

func (s *cajaService) ObtenerSesion(ctx context.Context, sesionID uuid.UUID) (*dto.SesionCajaResponse, error) {
	sesion, err := s.buscar(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	return sesionToResponse(sesion), nil
}

func (s *cajaService) Historial(ctx context.Context, page, limit int) ([]dto.SesionCajaResponse, int64, error) {
	sesiones, total, err := s.repo.ListSesiones(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		out = append(out, *sesionToResponse(&sesiones[i]))
	}
	return out, total, nil
}

func (s *cajaService) TotalArqueo(req dto.TotalArqueoRequest) (*dto.TotalArqueoResponse, error) {
	return s.contador.Totalizar(req)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) buscar(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSesionNoEncontrada
	}
	return sesion, err
}

// rechazo counts a failed close precondition and returns err unchanged.
func (s *cajaService) rechazo(err error) error {
	metrics.CierreRechazado(CodigoError(err))
	return err
}

// publicar never fails the transition: the state change is already committed.
func (s *cajaService) publicar(ctx context.Context, sesion *model.SesionCaja, tipo, operador string) {
	if s.publicador == nil {
		return
	}
	evento := dto.EventoCaja{
		Tipo:             tipo,
		SesionCajaID:     sesion.ID.String(),
		Operador:         operador,
		Fecha:            s.ahora().UTC(),
		MontoInicial:     sesion.MontoInicial.Decimal(),
		Observaciones:    sesion.Observaciones,
		CierreAutomatico: sesion.CierreAutomatico,
	}
	if sesion.EfectivoEsperado != nil {
		d := sesion.EfectivoEsperado.Decimal()
		evento.EfectivoEsperado = &d
	}
	if sesion.Diferencia != nil {
		d := sesion.Diferencia.Decimal()
		evento.Diferencia = &d
	}
	if err := s.publicador.PublicarEventoCaja(ctx, evento); err != nil {
		log.Error().Err(err).
			Str("tipo", tipo).
			Str("sesion_caja_id", evento.SesionCajaID).
			Msg("caja: no se pudo publicar el evento")
	}
}

func limpiarObservaciones(obs *string) *string {
	if obs == nil {
		return nil
	}
	t := strings.TrimSpace(*obs)
	if t == "" {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func sesionToResponse(s *model.SesionCaja) *dto.SesionCajaResponse {
	resp := &dto.SesionCajaResponse{
		SesionCajaID:     s.ID.String(),
		AbiertaPor:       s.AbiertaPor.String(),
		MontoInicial:     s.MontoInicial.Decimal(),
		Estado:           string(s.Estado),
		Observaciones:    s.Observaciones,
		CierreAutomatico: s.CierreAutomatico,
		ReinicioForzado:  s.ReinicioForzado,
		OpenedAt:         formatTime(s.OpenedAt),
	}
	if s.CerradaPor != nil {
		id := s.CerradaPor.String()
		resp.CerradaPor = &id
	}
	if s.MontoContado != nil {
		d := s.MontoContado.Decimal()
		resp.MontoContado = &d
	}
	if s.ClosedAt != nil {
		t := formatTime(*s.ClosedAt)
		resp.ClosedAt = &t
	}
	if c := s.Conciliacion(); c != nil {
		resp.Conciliacion = &dto.ConciliacionResponse{
			EfectivoEsperado:          c.EfectivoEsperado.Decimal(),
			EfectivoContado:           c.EfectivoContado.Decimal(),
			TransferenciasEsperadas:   c.TransferenciasEsperadas.Decimal(),
			TransferenciasVerificadas: c.TransferenciasVerificadas.Decimal(),
			Diferencia:                c.Diferencia.Decimal(),
			RequiereJustificacion:     c.RequiereJustificacion,
		}
	}
	return resp
}
