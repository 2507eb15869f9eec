// metrics — Prometheus-метрики портала.
// Все методы безопасны для nil-получателя: тесты и CLI собирают
// компоненты без реестра.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// Исходы входа.
const (
	LoginSuccess = "success"
	LoginFailed  = "invalid_credentials"
	LoginError   = "error"
)

// Metrics хранит счётчики и гистограммы портала.
type Metrics struct {
	logins        *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New регистрирует метрики в reg. reg == nil -> prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),

		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Route gate decisions by path class and action",
		}, []string{"class", "action", "cleared"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveLogin учитывает исход входа.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}

	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveGate учитывает решение RouteGate.
func (m *Metrics) ObserveGate(class, action string, cleared bool) {
	if m == nil {
		return
	}

	m.gateDecisions.WithLabelValues(class, action, strconv.FormatBool(cleared)).Inc()
}

// ObserveHTTP учитывает длительность HTTP-запроса. route — шаблон chi, не сырой путь.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
