package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/money"
	"github.com/afigueroah/shucway-app-main-sub002/internal/repository"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/google/uuid"
)

// ── In-memory store shared by the fake repositories ──────────────────────────

type memStore struct {
	mu             sync.Mutex
	sesiones       map[uuid.UUID]*model.SesionCaja
	verificaciones map[uuid.UUID]map[uuid.UUID]*model.VerificacionTransferencia
	ventas         []model.VentaLedger

	// one-shot hooks that let a test interleave a concurrent request
	antesDeFinalizar  func()
	alConsultarVentas func()
}

func newMemStore() *memStore {
	return &memStore{
		sesiones:       make(map[uuid.UUID]*model.SesionCaja),
		verificaciones: make(map[uuid.UUID]map[uuid.UUID]*model.VerificacionTransferencia),
	}
}

func (m *memStore) agregarVenta(metodo model.MetodoPago, monto string, fecha time.Time) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.ventas = append(m.ventas, model.VentaLedger{
		VentaID: id, Metodo: metodo, Monto: money.MustParse(monto), Fecha: fecha,
	})
	return id
}

func (m *memStore) anularVenta(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ventas[:0]
	for _, v := range m.ventas {
		if v.VentaID != id {
			out = append(out, v)
		}
	}
	m.ventas = out
}

func (m *memStore) sesion(id uuid.UUID) model.SesionCaja {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sesiones[id]
}

// disparar runs and clears a one-shot hook outside the store lock.
func (m *memStore) disparar(hook *func()) {
	m.mu.Lock()
	h := *hook
	*hook = nil
	m.mu.Unlock()
	if h != nil {
		h()
	}
}

func (m *memStore) sesionAbiertaLocked(id uuid.UUID) bool {
	s, ok := m.sesiones[id]
	return ok && s.Abierta()
}

func (m *memStore) contarVerificaciones(sesionID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verificaciones[sesionID])
}

// ── CajaRepository ───────────────────────────────────────────────────────────

type fakeCajaRepo struct{ *memStore }

func (r fakeCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.sesiones {
		if existente.Abierta() {
			return repository.ErrSesionAbiertaDuplicada
		}
	}
	c := *s
	r.sesiones[s.ID] = &c
	return nil
}

func (r fakeCajaRepo) FindSesionAbierta(_ context.Context) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sesiones {
		if s.Abierta() {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r fakeCajaRepo) FindUltimaSesion(_ context.Context) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ultima *model.SesionCaja
	for _, s := range r.sesiones {
		if ultima == nil || s.OpenedAt.After(ultima.OpenedAt) {
			ultima = s
		}
	}
	if ultima == nil {
		return nil, nil
	}
	c := *ultima
	return &c, nil
}

func (r fakeCajaRepo) FinalizarSesion(_ context.Context, s *model.SesionCaja, recibidas []uuid.UUID) error {
	r.disparar(&r.antesDeFinalizar)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sesionAbiertaLocked(s.ID) {
		return repository.ErrSesionNoAbierta
	}
	for _, ventaID := range recibidas {
		if v, ok := r.verificaciones[s.ID][ventaID]; ok && !v.Recibida() {
			return repository.ErrVerificacionPendiente
		}
	}
	c := *s
	r.sesiones[s.ID] = &c
	delete(r.verificaciones, s.ID)
	return nil
}

func (r fakeCajaRepo) ListSesiones(_ context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.SesionCaja, 0, len(r.sesiones))
	for _, s := range r.sesiones {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OpenedAt.After(all[j].OpenedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

var _ repository.CajaRepository = fakeCajaRepo{}

// ── TransferenciaRepository ──────────────────────────────────────────────────

type fakeTransferenciaRepo struct{ *memStore }

func (r fakeTransferenciaRepo) ListBySesion(_ context.Context, sesionID uuid.UUID) ([]model.VerificacionTransferencia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.VerificacionTransferencia, 0)
	for _, v := range r.verificaciones[sesionID] {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaVenta.Before(out[j].FechaVenta) })
	return out, nil
}

func (r fakeTransferenciaRepo) CreateMissing(_ context.Context, sesionID uuid.UUID, vs []model.VerificacionTransferencia) error {
	if len(vs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sesionAbiertaLocked(sesionID) {
		return repository.ErrSesionNoAbierta
	}
	for _, v := range vs {
		porVenta, ok := r.verificaciones[v.SesionCajaID]
		if !ok {
			porVenta = make(map[uuid.UUID]*model.VerificacionTransferencia)
			r.verificaciones[v.SesionCajaID] = porVenta
		}
		if _, existe := porVenta[v.VentaID]; existe {
			continue
		}
		c := v
		porVenta[v.VentaID] = &c
	}
	return nil
}

func (r fakeTransferenciaRepo) Find(_ context.Context, sesionID, ventaID uuid.UUID) (*model.VerificacionTransferencia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verificaciones[sesionID][ventaID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *v
	return &c, nil
}

func (r fakeTransferenciaRepo) Update(_ context.Context, v *model.VerificacionTransferencia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sesionAbiertaLocked(v.SesionCajaID) {
		return repository.ErrSesionNoAbierta
	}
	if _, ok := r.verificaciones[v.SesionCajaID][v.VentaID]; !ok {
		return repository.ErrNotFound
	}
	c := *v
	r.verificaciones[v.SesionCajaID][v.VentaID] = &c
	return nil
}

var _ repository.TransferenciaRepository = fakeTransferenciaRepo{}

// ── VentaLedger ──────────────────────────────────────────────────────────────

type fakeLedger struct{ *memStore }

func (l fakeLedger) VentasEnVentana(_ context.Context, desde, hasta time.Time) ([]model.VentaLedger, error) {
	l.disparar(&l.alConsultarVentas)
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.VentaLedger
	for _, v := range l.ventas {
		if !v.Fecha.Before(desde) && v.Fecha.Before(hasta) {
			out = append(out, v)
		}
	}
	return out, nil
}

var _ repository.VentaLedger = fakeLedger{}

// ── Publisher / clock ────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu      sync.Mutex
	eventos []dto.EventoCaja
	err     error
}

func (p *recordingPublisher) PublicarEventoCaja(_ context.Context, e dto.EventoCaja) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventos = append(p.eventos, e)
	return p.err
}

func (p *recordingPublisher) tipos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.eventos))
	for i, e := range p.eventos {
		out[i] = e.Tipo
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ── Fixture ──────────────────────────────────────────────────────────────────

const testMaxEdad = 12 * time.Hour

var quetzales = []money.Money{
	money.MustParse("200"), money.MustParse("100"), money.MustParse("50"),
	money.MustParse("20"), money.MustParse("10"), money.MustParse("5"),
	money.MustParse("1"), money.MustParse("0.50"), money.MustParse("0.25"),
	money.MustParse("0.10"), money.MustParse("0.05"), money.MustParse("0.01"),
}

type fixture struct {
	store          *memStore
	clock          *fakeClock
	pub            *recordingPublisher
	caja           service.CajaService
	transferencias service.TransferenciaService
}

func newFixture() *fixture {
	store := newMemStore()
	clock := newFakeClock()
	pub := &recordingPublisher{}
	cajaRepo := fakeCajaRepo{store}
	transfRepo := fakeTransferenciaRepo{store}
	ledger := fakeLedger{store}
	return &fixture{
		store: store,
		clock: clock,
		pub:   pub,
		caja: service.NewCajaService(cajaRepo, transfRepo, ledger, pub, service.Opciones{
			MaxEdadSesion:  testMaxEdad,
			Denominaciones: quetzales,
			Ahora:          clock.Now,
		}),
		transferencias: service.NewTransferenciaService(cajaRepo, transfRepo, ledger, clock.Now),
	}
}

// venta records a sale one minute after the current fake time and advances the clock.
func (f *fixture) venta(metodo model.MetodoPago, monto string) uuid.UUID {
	f.clock.Advance(time.Minute)
	id := f.store.agregarVenta(metodo, monto, f.clock.Now())
	f.clock.Advance(time.Minute)
	return id
}
