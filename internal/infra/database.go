package infra

import (
	"fmt"

	"github.com/afigueroah/shucway-app-main-sub002/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM/pgx connection and brings the caja tables up to
// date. The ventas and venta_pagos tables belong to the sales module and are
// only read here.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the caja tables and applies the idempotent patches
// GORM cannot express. Integration tests call it directly.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.SesionCaja{},
		&model.VerificacionTransferencia{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs DDL that AutoMigrate cannot produce. Every statement
// is guarded so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Single open session system-wide. A constant expression index with a
		// partial predicate admits exactly one 'abierta' row.
		{"partial unique index uq_sesiones_caja_abierta", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_sesiones_caja_abierta') THEN
    CREATE UNIQUE INDEX uq_sesiones_caja_abierta
        ON sesiones_caja ((true))
        WHERE estado = 'abierta';
  END IF;
END $$`},
		{"check estado sesiones_caja", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sesiones_caja_estado') THEN
    ALTER TABLE sesiones_caja ADD CONSTRAINT chk_sesiones_caja_estado
        CHECK (estado IN ('abierta', 'cerrada', 'expirada'));
  END IF;
END $$`},
		{"check monto inicial no negativo", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sesiones_caja_monto_inicial') THEN
    ALTER TABLE sesiones_caja ADD CONSTRAINT chk_sesiones_caja_monto_inicial
        CHECK (monto_inicial_centavos >= 0);
  END IF;
END $$`},
		{"check estado verificaciones_transferencia", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_verificaciones_transferencia_estado') THEN
    ALTER TABLE verificaciones_transferencia ADD CONSTRAINT chk_verificaciones_transferencia_estado
        CHECK (estado IN ('pendiente', 'recibida'));
  END IF;
END $$`},
		// Ledger window query: only when the sales module's table exists.
		{"index ventas created_at", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'ventas')
    AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ventas_completadas_created_at') THEN
    CREATE INDEX idx_ventas_completadas_created_at
        ON ventas (created_at)
        WHERE estado = 'completada';
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
