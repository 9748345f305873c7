package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/infra"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VentaLedger is the read-only view over confirmed sales. Sale creation is
// owned by the ventas module; the caja engine only reads from it.
type VentaLedger interface {
	// VentasEnVentana returns confirmed sales with desde <= fecha < hasta,
	// one entry per (venta, método de pago).
	VentasEnVentana(ctx context.Context, desde, hasta time.Time) ([]model.VentaLedger, error)
}

type ventaLedgerRepo struct{ db *gorm.DB }

func NewVentaLedger(db *gorm.DB) VentaLedger { return &ventaLedgerRepo{db: db} }

type ventaPagoRow struct {
	VentaID uuid.UUID
	Metodo  string
	Monto   decimal.Decimal
	Fecha   time.Time
}

func (r *ventaLedgerRepo) VentasEnVentana(ctx context.Context, desde, hasta time.Time) ([]model.VentaLedger, error) {
	var rows []ventaPagoRow
	err := r.db.WithContext(ctx).
		Table("venta_pagos AS p").
		Select("p.venta_id AS venta_id, p.metodo AS metodo, SUM(p.monto) AS monto, v.created_at AS fecha").
		Joins("JOIN ventas v ON v.id = p.venta_id").
		Where("v.estado = ? AND v.created_at >= ? AND v.created_at < ?", "completada", desde, hasta).
		Group("p.venta_id, p.metodo, v.created_at").
		Order("v.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return convertirFilas(rows)
}

// convertirFilas validates the method label and the amount precision of each row.
func convertirFilas(rows []ventaPagoRow) ([]model.VentaLedger, error) {
	out := make([]model.VentaLedger, 0, len(rows))
	for _, row := range rows {
		metodo, err := model.ParseMetodoPago(row.Metodo)
		if err != nil {
			return nil, fmt.Errorf("venta %s: %w", row.VentaID, err)
		}
		monto, err := money.FromDecimal(row.Monto)
		if err != nil {
			return nil, fmt.Errorf("venta %s: %w", row.VentaID, err)
		}
		out = append(out, model.VentaLedger{
			VentaID: row.VentaID,
			Metodo:  metodo,
			Monto:   monto,
			Fecha:   row.Fecha,
		})
	}
	return out, nil
}

// ledgerProtegido fast-fails ledger reads while the breaker is open.
type ledgerProtegido struct {
	inner VentaLedger
	cb    *infra.CircuitBreaker
}

// NewLedgerProtegido wraps a VentaLedger with a circuit breaker.
func NewLedgerProtegido(inner VentaLedger, cb *infra.CircuitBreaker) VentaLedger {
	return &ledgerProtegido{inner: inner, cb: cb}
}

func (l *ledgerProtegido) VentasEnVentana(ctx context.Context, desde, hasta time.Time) ([]model.VentaLedger, error) {
	var ventas []model.VentaLedger
	err := l.cb.Execute(func() error {
		var err error
		ventas, err = l.inner.VentasEnVentana(ctx, desde, hasta)
		return err
	})
	return ventas, err
}
