package repository

import (
	"context"
	"errors"

	"github.com/afigueroah/shucway-app-main-sub002/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IdxSesionAbiertaUnica is the partial unique index that allows a single
// "abierta" row in sesiones_caja.
const IdxSesionAbiertaUnica = "uq_sesiones_caja_abierta"

var (
	ErrNotFound = errors.New("registro no encontrado")
	// ErrSesionAbiertaDuplicada: another session holds the open slot.
	ErrSesionAbiertaDuplicada = errors.New("ya existe una sesión de caja abierta")
	// ErrSesionNoAbierta: the session was already ended by a concurrent transition.
	ErrSesionNoAbierta = errors.New("la sesión de caja ya no está abierta")
	// ErrVerificacionPendiente: a transfer required to be received was flipped
	// back to pendiente before the close committed.
	ErrVerificacionPendiente = errors.New("hay transferencias pendientes de verificación")
)

type CajaRepository interface {
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	// FindSesionAbierta returns (nil, nil) when no session is open.
	FindSesionAbierta(ctx context.Context) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// FindUltimaSesion returns the most recently opened session, or (nil, nil).
	FindUltimaSesion(ctx context.Context) (*model.SesionCaja, error)
	// FinalizarSesion persists a terminal state only if the row is still open,
	// and discards the session's transfer verifications in the same transaction.
	// Every sale in recibidas must still be "recibida" at commit time.
	FinalizarSesion(ctx context.Context, s *model.SesionCaja, recibidas []uuid.UUID) error
	ListSesiones(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if isUniqueViolation(err, IdxSesionAbiertaUnica) {
		return ErrSesionAbiertaDuplicada
	}
	return err
}

func (r *cajaRepo) FindSesionAbierta(ctx context.Context) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Where("estado = ?", model.EstadoAbierta).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *cajaRepo) FindUltimaSesion(ctx context.Context) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Order("opened_at DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// columnasCierre are written on every terminal transition, including nil/false values.
var columnasCierre = []string{
	"estado", "cerrada_por", "closed_at", "monto_contado_centavos", "observaciones",
	"cierre_automatico", "reinicio_forzado",
	"efectivo_esperado_centavos", "transferencias_esperadas_centavos",
	"transferencias_verificadas_centavos", "diferencia_centavos", "desglose_arqueo",
}

func (r *cajaRepo) FinalizarSesion(ctx context.Context, s *model.SesionCaja, recibidas []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock taken here orders this close against verification
		// writers, which lock the session row FOR SHARE.
		res := tx.Model(&model.SesionCaja{}).
			Where("id = ? AND estado = ?", s.ID, model.EstadoAbierta).
			Select(columnasCierre).
			Updates(s)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSesionNoAbierta
		}
		if len(recibidas) > 0 {
			var pendientes int64
			err := tx.Model(&model.VerificacionTransferencia{}).
				Where("sesion_caja_id = ? AND venta_id IN ? AND estado <> ?", s.ID, recibidas, model.TransferenciaRecibida).
				Count(&pendientes).Error
			if err != nil {
				return err
			}
			if pendientes > 0 {
				return ErrVerificacionPendiente
			}
		}
		return tx.Where("sesion_caja_id = ?", s.ID).Delete(&model.VerificacionTransferencia{}).Error
	})
}

func (r *cajaRepo) ListSesiones(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&sesiones).Error
	return sesiones, total, err
}

// isUniqueViolation reports a Postgres 23505 on the given constraint/index.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
}
