package service_test

import (
	"context"
	"testing"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListarTransferencias_MaterializaPendientes(t *testing.T) {
	f := newFixture()
	sesion := abrir(t, f, "100")
	f.venta(model.MetodoEfectivo, "50")
	t1 := f.venta(model.MetodoTransferencia, "40")
	t2 := f.venta(model.MetodoTransferencia, "12.50")

	resp, err := f.transferencias.Listar(context.Background(), uuid.MustParse(sesion.SesionCajaID))
	require.NoError(t, err)

	require.Len(t, resp.Transferencias, 2)
	assert.Equal(t, t1.String(), resp.Transferencias[0].VentaID)
	assert.Equal(t, t2.String(), resp.Transferencias[1].VentaID)
	assert.Equal(t, "pendiente", resp.Transferencias[0].Estado)
	assert.Equal(t, 2, resp.Pendientes)
	assert.Equal(t, "52.50", resp.TotalEsperado.StringFixed(2))
	assert.True(t, resp.TotalVerificado.IsZero())
}

func TestMarcarRecibida_Idempotente(t *testing.T) {
	f := newFixture()
	sesion := abrir(t, f, "100")
	ventaID := f.venta(model.MetodoTransferencia, "40")

	// the row does not exist yet; it is materialized on demand
	primera, err := f.transferencias.MarcarRecibida(context.Background(), ventaID)
	require.NoError(t, err)
	segunda, err := f.transferencias.MarcarRecibida(context.Background(), ventaID)
	require.NoError(t, err)

	assert.Equal(t, "recibida", primera.Estado)
	assert.Equal(t, primera, segunda)

	resp, err := f.transferencias.Listar(context.Background(), uuid.MustParse(sesion.SesionCajaID))
	require.NoError(t, err)
	assert.Zero(t, resp.Pendientes)
	assert.Equal(t, "40.00", resp.TotalVerificado.StringFixed(2))
}

func TestMarcarPendiente_Revierte(t *testing.T) {
	f := newFixture()
	abrir(t, f, "100")
	ventaID := f.venta(model.MetodoTransferencia, "40")

	_, err := f.transferencias.MarcarRecibida(context.Background(), ventaID)
	require.NoError(t, err)
	resp, err := f.transferencias.MarcarPendiente(context.Background(), ventaID)
	require.NoError(t, err)
	assert.Equal(t, "pendiente", resp.Estado)

	_, err = f.caja.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		Conteo: dto.ConteoDenominaciones{"100": 1},
	})
	assert.ErrorIs(t, err, service.ErrTransferenciasPendientes)
}

func TestActualizarReferencia(t *testing.T) {
	f := newFixture()
	abrir(t, f, "100")
	ventaID := f.venta(model.MetodoTransferencia, "40")

	resp, err := f.transferencias.ActualizarReferencia(context.Background(), ventaID, dto.ActualizarReferenciaRequest{
		ReferenciaBancaria: ptr("TRX-00981"),
		Banco:              ptr("Banrural"),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ReferenciaBancaria)
	assert.Equal(t, "TRX-00981", *resp.ReferenciaBancaria)
	assert.Equal(t, "Banrural", *resp.Banco)
	assert.Equal(t, "pendiente", resp.Estado)
}

func TestTransferencias_VentaDesconocida(t *testing.T) {
	f := newFixture()
	abrir(t, f, "100")
	efectivo := f.venta(model.MetodoEfectivo, "40")

	_, err := f.transferencias.MarcarRecibida(context.Background(), efectivo)
	assert.ErrorIs(t, err, service.ErrVentaDesconocida)

	_, err = f.transferencias.MarcarRecibida(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrVentaDesconocida)
}

func TestTransferencias_SinSesion(t *testing.T) {
	f := newFixture()
	_, err := f.transferencias.MarcarRecibida(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrSinSesionActiva)
}

func TestListarTransferencias_SesionCerradaODesconocida(t *testing.T) {
	f := newFixture()
	sesion := abrir(t, f, "0")
	_, err := f.caja.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		Conteo: dto.ConteoDenominaciones{},
	})
	require.NoError(t, err)

	_, err = f.transferencias.Listar(context.Background(), uuid.MustParse(sesion.SesionCajaID))
	assert.ErrorIs(t, err, service.ErrSesionYaCerrada)

	_, err = f.transferencias.Listar(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrSesionNoEncontrada)
}

func TestTransferencias_NuevaSesionEmpiezaVacia(t *testing.T) {
	f := newFixture()
	abrir(t, f, "0")
	ventaID := f.venta(model.MetodoTransferencia, "40")
	_, err := f.transferencias.MarcarRecibida(context.Background(), ventaID)
	require.NoError(t, err)
	_, err = f.caja.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		Conteo: dto.ConteoDenominaciones{},
	})
	require.NoError(t, err)

	nueva := abrir(t, f, "0")
	resp, err := f.transferencias.Listar(context.Background(), uuid.MustParse(nueva.SesionCajaID))
	require.NoError(t, err)
	assert.Empty(t, resp.Transferencias)
}

func TestListarTransferencias_SesionTerminadaDuranteLaConsulta(t *testing.T) {
	f := newFixture()
	sesion := abrir(t, f, "100")
	f.venta(model.MetodoTransferencia, "40")
	id := uuid.MustParse(sesion.SesionCajaID)

	// an administrator resets the till while the ledger is being read
	f.store.alConsultarVentas = func() {
		_, err := f.caja.ReiniciarForzado(context.Background(), uuid.New())
		require.NoError(t, err)
	}

	_, err := f.transferencias.Listar(context.Background(), id)
	assert.ErrorIs(t, err, service.ErrSesionYaCerrada)
	assert.Zero(t, f.store.contarVerificaciones(id), "no rows outlive the session")
}
