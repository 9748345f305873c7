// Package metrics exposes Prometheus collectors for the caja lifecycle.
// Collectors exist from package init so callers never need a nil check;
// Register attaches them to a registry once.
package metrics

import (
	"sync"

	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "caja_"

const (
	TransicionApertura        = "apertura"
	TransicionCierre          = "cierre"
	TransicionExpiracion      = "expiracion"
	TransicionReinicioForzado = "reinicio_forzado"
)

var (
	registerOnce sync.Once

	transiciones = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "transiciones_total",
			Help: "Session transitions by kind",
		},
		[]string{"transicion"},
	)
	cierresRechazados = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "cierres_rechazados_total",
			Help: "Rejected close attempts by failed precondition",
		},
		[]string{"motivo"},
	)
	diferenciaCierre = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "diferencia_cierre_absoluta",
			Help:    "Absolute counted-minus-expected cash difference at close, in currency units",
			Buckets: []float64{0, 0.5, 1, 5, 10, 50, 100, 500},
		},
	)
	sesionAbierta = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metricPrefix + "sesion_abierta",
			Help: "1 while a cash session is open",
		},
	)
	eventosDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "eventos_dlq_total",
			Help: "Caja events moved to the dead letter queue",
		},
	)
)

// Register adds the caja collectors to reg. Safe to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(transiciones, cierresRechazados, diferenciaCierre, sesionAbierta, eventosDLQ)
	})
}

func SesionAbierta() {
	transiciones.WithLabelValues(TransicionApertura).Inc()
	sesionAbierta.Set(1)
}

func SesionCerrada(diferencia money.Money) {
	transiciones.WithLabelValues(TransicionCierre).Inc()
	sesionAbierta.Set(0)
	// float only for the exported sample; the engine never computes with it
	diferenciaCierre.Observe(float64(diferencia.Abs().Cents()) / 100)
}

func SesionExpirada() {
	transiciones.WithLabelValues(TransicionExpiracion).Inc()
	sesionAbierta.Set(0)
}

func ReinicioForzado() {
	transiciones.WithLabelValues(TransicionReinicioForzado).Inc()
	sesionAbierta.Set(0)
}

func CierreRechazado(motivo string) {
	cierresRechazados.WithLabelValues(motivo).Inc()
}

func EventoEnDLQ() {
	eventosDLQ.Inc()
}
