// Package metrics собирает счётчики Prometheus для бронирований, диалога и уведомлений.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studio_booking"

// Metrics реализует Recorder для service, dialog и notify
type Metrics struct {
	registry *prometheus.Registry

	bookingsCreated  prometheus.Counter
	slotConflicts    prometheus.Counter
	transitions      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	reprompts        *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Reservations created.",
		}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Reservations rejected because the slot was taken.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Lifecycle transitions by target status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and result.",
		}, []string{"sink", "result"}),
		reprompts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialog_reprompts_total",
			Help:      "Invalid answers that re-prompted a conversation step.",
		}, []string{"step"}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	m.registry.MustRegister(
		m.bookingsCreated,
		m.slotConflicts,
		m.transitions,
		m.notifications,
		m.reprompts,
		m.requestDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) BookingCreated() {
	m.bookingsCreated.Inc()
}

func (m *Metrics) SlotConflict() {
	m.slotConflicts.Inc()
}

func (m *Metrics) Transition(status model.BookingStatus) {
	m.transitions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Delivered(sink string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(sink, result).Inc()
}

func (m *Metrics) Reprompted(step string) {
	m.reprompts.WithLabelValues(step).Inc()
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware замеряет длительность запросов. Маршрут берётся из шаблона пути.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			route := c.Path()
			if route == "" {
				route = "unknown"
			}

			m.requestDurations.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}
