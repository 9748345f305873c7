package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type avisoEnviado struct{ to, subject, body string }

type fakeAvisador struct {
	enviados []avisoEnviado
	err      error
}

func (f *fakeAvisador) SendAviso(to, subject, body string) error {
	f.enviados = append(f.enviados, avisoEnviado{to, subject, body})
	return f.err
}

func eventoJSON(t *testing.T, tipo string) json.RawMessage {
	t.Helper()
	esperado := decimal.RequireFromString("125.50")
	raw, err := json.Marshal(dto.EventoCaja{
		Tipo:             tipo,
		SesionCajaID:     "6f1c1f0e-8d0e-4b8e-9b1a-3d8f7c2a0001",
		Fecha:            time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC),
		MontoInicial:     decimal.RequireFromString("100"),
		EfectivoEsperado: &esperado,
		CierreAutomatico: tipo != dto.EventoApertura && tipo != dto.EventoCierre,
	})
	require.NoError(t, err)
	return raw
}

func TestNotificacionWorker_AvisaExpiracion(t *testing.T) {
	mailer := &fakeAvisador{}
	w := NewNotificacionWorker(mailer, "supervisor@shucway.gt", "Q")

	require.NoError(t, w.Process(context.Background(), eventoJSON(t, dto.EventoExpiracion)))

	require.Len(t, mailer.enviados, 1)
	assert.Equal(t, "supervisor@shucway.gt", mailer.enviados[0].to)
	assert.Contains(t, mailer.enviados[0].subject, "expirada")
	assert.Contains(t, mailer.enviados[0].body, "Q125.50")
	assert.Contains(t, mailer.enviados[0].body, "Q100.00")
}

func TestNotificacionWorker_CierreNormalNoAvisa(t *testing.T) {
	mailer := &fakeAvisador{}
	w := NewNotificacionWorker(mailer, "supervisor@shucway.gt", "Q")

	require.NoError(t, w.Process(context.Background(), eventoJSON(t, dto.EventoCierre)))
	require.NoError(t, w.Process(context.Background(), eventoJSON(t, dto.EventoApertura)))
	assert.Empty(t, mailer.enviados)
}

func TestNotificacionWorker_SMTPSinConfigurarNoFalla(t *testing.T) {
	w := NewNotificacionWorker(&fakeAvisador{err: infra.ErrMailerSinConfigurar}, "supervisor@shucway.gt", "Q")
	assert.NoError(t, w.Process(context.Background(), eventoJSON(t, dto.EventoReinicioForzado)))
}

func TestNotificacionWorker_PayloadInvalidoEsPermanente(t *testing.T) {
	w := NewNotificacionWorker(&fakeAvisador{}, "supervisor@shucway.gt", "Q")
	err := w.Process(context.Background(), json.RawMessage(`{"tipo": 12`))
	var perm *ErrPermanente
	assert.True(t, errors.As(err, &perm))
}

func jobRaw(t *testing.T, job Job) string {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return string(b)
}

func TestProcessJob(t *testing.T) {
	mailer := &fakeAvisador{}
	handlers := Handlers{JobEventoCaja: NewNotificacionWorker(mailer, "supervisor@shucway.gt", "Q")}

	t.Run("ok", func(t *testing.T) {
		r := processJob(context.Background(), handlers,
			jobRaw(t, Job{Type: JobEventoCaja, Payload: eventoJSON(t, dto.EventoExpiracion)}))
		assert.NoError(t, r.err)
		assert.Equal(t, 1, r.job.Attempts)
	})

	t.Run("no decodificable", func(t *testing.T) {
		r := processJob(context.Background(), handlers, "not json")
		assert.Error(t, r.err)
		assert.True(t, r.fatal)
	})

	t.Run("tipo desconocido", func(t *testing.T) {
		r := processJob(context.Background(), handlers, jobRaw(t, Job{Type: "facturacion"}))
		assert.Error(t, r.err)
		assert.True(t, r.fatal)
	})

	t.Run("fallo transitorio se reintenta", func(t *testing.T) {
		fallando := Handlers{JobEventoCaja: NewNotificacionWorker(
			&fakeAvisador{err: errors.New("smtp timeout")}, "supervisor@shucway.gt", "Q")}
		r := processJob(context.Background(), fallando,
			jobRaw(t, Job{Type: JobEventoCaja, Payload: eventoJSON(t, dto.EventoExpiracion), Attempts: 1}))
		assert.Error(t, r.err)
		assert.False(t, r.fatal)
		assert.Equal(t, 2, r.job.Attempts)
	})
}

func TestNewDLQEntry_PayloadNoJSON(t *testing.T) {
	e := newDLQEntry(QueueCaja, "", json.RawMessage("not json"), "unmarshal", 0)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":"not json"`)
}

type fakeExpirador struct {
	n     int
	err   error
	calls int
}

func (f *fakeExpirador) ExpirarVencidas(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

func TestBarrido(t *testing.T) {
	assert.Equal(t, 1, barrido(context.Background(), &fakeExpirador{n: 1}))
	assert.Equal(t, 0, barrido(context.Background(), &fakeExpirador{err: errors.New("db down")}))
}

func TestStartExpiryCron_BarreAlIniciar(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exp := &expiradorCanal{ch: make(chan struct{}, 1)}

	StartExpiryCron(ctx, exp, time.Hour)

	select {
	case <-exp.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("the sweep did not run on start")
	}
}

type expiradorCanal struct{ ch chan struct{} }

func (e *expiradorCanal) ExpirarVencidas(context.Context) (int, error) {
	select {
	case e.ch <- struct{}{}:
	default:
	}
	return 0, nil
}
