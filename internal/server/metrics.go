package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qkdsim/bb84/bb84"
)

type metrics struct {
	runs        *prometheus.CounterVec
	eveDetected prometheus.Counter
	qber        prometheus.Histogram
	siftedRatio prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bb84_runs_total",
				Help: "Number of completed protocol runs",
			},
			[]string{"mode", "eavesdrop"},
		),
		eveDetected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bb84_eve_detected_total",
				Help: "Number of runs whose QBER exceeded the detection threshold",
			},
		),
		qber: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bb84_qber",
				Help:    "Quantum bit error rate observed per run",
				Buckets: prometheus.LinearBuckets(0, 0.05, 11),
			},
		),
		siftedRatio: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bb84_sifted_ratio",
				Help:    "Fraction of exchanged qubits kept after sifting",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}
	reg.MustRegister(m.runs, m.eveDetected, m.qber, m.siftedRatio)
	return m
}

func (m *metrics) observe(mode bb84.Mode, eavesdrop bool, res bb84.RunResult) {
	m.runs.WithLabelValues(string(mode), strconv.FormatBool(eavesdrop)).Inc()
	if res.EveDetected {
		m.eveDetected.Inc()
	}
	m.qber.Observe(res.QBER)
	if res.TotalBits > 0 {
		m.siftedRatio.Observe(float64(res.SiftedKeyLength) / float64(res.TotalBits))
	}
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
