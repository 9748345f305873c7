package service

import (
	"context"
	"errors"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/money"
	"github.com/afigueroah/shucway-app-main-sub002/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TransferenciaService tracks, per open session, whether each transfer sale's
// funds were received. Verification rows are created lazily from the ledger.
type TransferenciaService interface {
	Listar(ctx context.Context, sesionID uuid.UUID) (*dto.TransferenciasSesionResponse, error)
	MarcarRecibida(ctx context.Context, ventaID uuid.UUID) (*dto.TransferenciaResponse, error)
	MarcarPendiente(ctx context.Context, ventaID uuid.UUID) (*dto.TransferenciaResponse, error)
	ActualizarReferencia(ctx context.Context, ventaID uuid.UUID, req dto.ActualizarReferenciaRequest) (*dto.TransferenciaResponse, error)
}

type transferenciaService struct {
	cajaRepo repository.CajaRepository
	repo     repository.TransferenciaRepository
	ledger   repository.VentaLedger
	ahora    func() time.Time
}

func NewTransferenciaService(
	cajaRepo repository.CajaRepository,
	repo repository.TransferenciaRepository,
	ledger repository.VentaLedger,
	ahora func() time.Time,
) TransferenciaService {
	return newTransferenciaService(cajaRepo, repo, ledger, ahora)
}

func newTransferenciaService(
	cajaRepo repository.CajaRepository,
	repo repository.TransferenciaRepository,
	ledger repository.VentaLedger,
	ahora func() time.Time,
) *transferenciaService {
	if ahora == nil {
		ahora = time.Now
	}
	return &transferenciaService{cajaRepo: cajaRepo, repo: repo, ledger: ledger, ahora: ahora}
}

// ── Listar ────────────────────────────────────────────────────────────────────

func (s *transferenciaService) Listar(ctx context.Context, sesionID uuid.UUID) (*dto.TransferenciasSesionResponse, error) {
	sesion, err := s.cajaRepo.FindSesionByID(ctx, sesionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSesionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	if !sesion.Abierta() {
		return nil, ErrSesionYaCerrada
	}

	ventas, err := s.ledger.VentasEnVentana(ctx, sesion.OpenedAt, s.ahora())
	if err != nil {
		return nil, err
	}
	verificaciones, err := s.sincronizar(ctx, sesion, ventas)
	if err != nil {
		return nil, err
	}

	esperado, verificado := totalesTransferencias(verificaciones)
	resp := &dto.TransferenciasSesionResponse{
		SesionCajaID:    sesion.ID.String(),
		Transferencias:  make([]dto.TransferenciaResponse, 0, len(verificaciones)),
		TotalEsperado:   esperado.Decimal(),
		TotalVerificado: verificado.Decimal(),
	}
	for i := range verificaciones {
		if !verificaciones[i].Recibida() {
			resp.Pendientes++
		}
		resp.Transferencias = append(resp.Transferencias, transferenciaToResponse(&verificaciones[i]))
	}
	return resp, nil
}

// ── Estado / referencia ───────────────────────────────────────────────────────

func (s *transferenciaService) MarcarRecibida(ctx context.Context, ventaID uuid.UUID) (*dto.TransferenciaResponse, error) {
	return s.cambiarEstado(ctx, ventaID, model.TransferenciaRecibida)
}

func (s *transferenciaService) MarcarPendiente(ctx context.Context, ventaID uuid.UUID) (*dto.TransferenciaResponse, error) {
	return s.cambiarEstado(ctx, ventaID, model.TransferenciaPendiente)
}

// cambiarEstado is idempotent: flipping to the current state writes nothing.
func (s *transferenciaService) cambiarEstado(ctx context.Context, ventaID uuid.UUID, estado model.EstadoTransferencia) (*dto.TransferenciaResponse, error) {
	v, err := s.buscarEnSesionActiva(ctx, ventaID)
	if err != nil {
		return nil, err
	}
	if v.Estado == estado {
		resp := transferenciaToResponse(v)
		return &resp, nil
	}
	v.Estado = estado
	if err := s.actualizar(ctx, v); err != nil {
		return nil, err
	}
	log.Info().
		Str("sesion_caja_id", v.SesionCajaID.String()).
		Str("venta_id", ventaID.String()).
		Str("estado", string(estado)).
		Msg("caja: transferencia actualizada")
	resp := transferenciaToResponse(v)
	return &resp, nil
}

func (s *transferenciaService) ActualizarReferencia(ctx context.Context, ventaID uuid.UUID, req dto.ActualizarReferenciaRequest) (*dto.TransferenciaResponse, error) {
	v, err := s.buscarEnSesionActiva(ctx, ventaID)
	if err != nil {
		return nil, err
	}
	v.ReferenciaBancaria = req.ReferenciaBancaria
	v.Banco = req.Banco
	if err := s.actualizar(ctx, v); err != nil {
		return nil, err
	}
	resp := transferenciaToResponse(v)
	return &resp, nil
}

// buscarEnSesionActiva finds the verification row for ventaID in the open
// session, materializing the session's transfer set first when needed.
func (s *transferenciaService) buscarEnSesionActiva(ctx context.Context, ventaID uuid.UUID) (*model.VerificacionTransferencia, error) {
	sesion, err := s.cajaRepo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinSesionActiva
	}

	v, err := s.repo.Find(ctx, sesion.ID, ventaID)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	ventas, err := s.ledger.VentasEnVentana(ctx, sesion.OpenedAt, s.ahora())
	if err != nil {
		return nil, err
	}
	if _, err := s.sincronizar(ctx, sesion, ventas); err != nil {
		return nil, err
	}
	v, err = s.repo.Find(ctx, sesion.ID, ventaID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrVentaDesconocida
	}
	return v, err
}

// sincronizar creates "pendiente" rows for transfer sales not seen yet and
// returns the verifications of the sales currently in the window. Rows of
// sales that left the window (voided) are ignored.
func (s *transferenciaService) sincronizar(ctx context.Context, sesion *model.SesionCaja, ventas []model.VentaLedger) ([]model.VerificacionTransferencia, error) {
	enVentana := make(map[uuid.UUID]bool)
	nuevas := make([]model.VerificacionTransferencia, 0)
	for _, venta := range ventas {
		if venta.Metodo != model.MetodoTransferencia {
			continue
		}
		enVentana[venta.VentaID] = true
		nuevas = append(nuevas, model.VerificacionTransferencia{
			SesionCajaID: sesion.ID,
			VentaID:      venta.VentaID,
			Monto:        venta.Monto,
			Estado:       model.TransferenciaPendiente,
			FechaVenta:   venta.Fecha,
		})
	}
	if err := s.repo.CreateMissing(ctx, sesion.ID, nuevas); err != nil {
		if errors.Is(err, repository.ErrSesionNoAbierta) {
			return nil, ErrSesionYaCerrada
		}
		return nil, err
	}

	todas, err := s.repo.ListBySesion(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	out := todas[:0]
	for _, v := range todas {
		if enVentana[v.VentaID] {
			out = append(out, v)
		}
	}
	return out, nil
}

// actualizar fails with ErrSesionYaCerrada when the session ended between
// the lookup and the write.
func (s *transferenciaService) actualizar(ctx context.Context, v *model.VerificacionTransferencia) error {
	err := s.repo.Update(ctx, v)
	if errors.Is(err, repository.ErrSesionNoAbierta) {
		return ErrSesionYaCerrada
	}
	return err
}

// pendientesActuales re-reads which of ventaIDs are not received, after a
// close lost the race against a verification flip.
func (s *transferenciaService) pendientesActuales(ctx context.Context, sesionID uuid.UUID, ventaIDs []uuid.UUID) error {
	pendiente := &TransferenciasPendientesError{}
	actuales, err := s.repo.ListBySesion(ctx, sesionID)
	if err != nil {
		log.Error().Err(err).Str("sesion_caja_id", sesionID.String()).Msg("caja: no se pudo releer transferencias")
		return pendiente
	}
	enCierre := make(map[uuid.UUID]bool, len(ventaIDs))
	for _, id := range ventaIDs {
		enCierre[id] = true
	}
	for _, v := range actuales {
		if enCierre[v.VentaID] && !v.Recibida() {
			pendiente.VentaIDs = append(pendiente.VentaIDs, v.VentaID)
		}
	}
	return pendiente
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func totalesTransferencias(vs []model.VerificacionTransferencia) (esperado, verificado money.Money) {
	for _, v := range vs {
		esperado = esperado.Add(v.Monto)
		if v.Recibida() {
			verificado = verificado.Add(v.Monto)
		}
	}
	return esperado, verificado
}

func pendientes(vs []model.VerificacionTransferencia) []uuid.UUID {
	var ids []uuid.UUID
	for _, v := range vs {
		if !v.Recibida() {
			ids = append(ids, v.VentaID)
		}
	}
	return ids
}

func transferenciaToResponse(v *model.VerificacionTransferencia) dto.TransferenciaResponse {
	return dto.TransferenciaResponse{
		VentaID:            v.VentaID.String(),
		Monto:              v.Monto.Decimal(),
		Estado:             string(v.Estado),
		ReferenciaBancaria: v.ReferenciaBancaria,
		Banco:              v.Banco,
		FechaVenta:         v.FechaVenta.UTC().Format(time.RFC3339),
	}
}
