package repository

import (
	"context"
	"errors"

	"github.com/afigueroah/shucway-app-main-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransferenciaRepository interface {
	ListBySesion(ctx context.Context, sesionID uuid.UUID) ([]model.VerificacionTransferencia, error)
	// CreateMissing inserts rows that do not exist yet; existing ones keep their
	// state. ErrSesionNoAbierta when the session already ended.
	CreateMissing(ctx context.Context, sesionID uuid.UUID, vs []model.VerificacionTransferencia) error
	Find(ctx context.Context, sesionID, ventaID uuid.UUID) (*model.VerificacionTransferencia, error)
	// Update writes state and reference fields. ErrSesionNoAbierta when the
	// session already ended.
	Update(ctx context.Context, v *model.VerificacionTransferencia) error
}

type transferenciaRepo struct{ db *gorm.DB }

func NewTransferenciaRepository(db *gorm.DB) TransferenciaRepository {
	return &transferenciaRepo{db: db}
}

func (r *transferenciaRepo) ListBySesion(ctx context.Context, sesionID uuid.UUID) ([]model.VerificacionTransferencia, error) {
	var vs []model.VerificacionTransferencia
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionID).
		Order("fecha_venta ASC").
		Find(&vs).Error
	return vs, err
}

func (r *transferenciaRepo) CreateMissing(ctx context.Context, sesionID uuid.UUID, vs []model.VerificacionTransferencia) error {
	if len(vs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bloquearSesionAbierta(tx, sesionID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&vs).Error
	})
}

func (r *transferenciaRepo) Find(ctx context.Context, sesionID, ventaID uuid.UUID) (*model.VerificacionTransferencia, error) {
	var v model.VerificacionTransferencia
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ? AND venta_id = ?", sesionID, ventaID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &v, err
}

func (r *transferenciaRepo) Update(ctx context.Context, v *model.VerificacionTransferencia) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bloquearSesionAbierta(tx, v.SesionCajaID); err != nil {
			return err
		}
		res := tx.Model(v).
			Select("estado", "referencia_bancaria", "banco", "updated_at").
			Updates(v)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// bloquearSesionAbierta takes a share lock on the session row so a
// concurrent FinalizarSesion waits for this transaction, or fails it when the
// session already ended.
func bloquearSesionAbierta(tx *gorm.DB, sesionID uuid.UUID) error {
	var ids []uuid.UUID
	err := tx.Model(&model.SesionCaja{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ? AND estado = ?", sesionID, model.EstadoAbierta).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrSesionNoAbierta
	}
	return nil
}
