package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service owns the process metrics registry. A nil *Service is valid
// and records nothing, so callers never guard their instrumentation.
type Service struct {
	registry          *prometheus.Registry
	messageDuration   prometheus.Histogram
	newMessages       prometheus.Counter
	messageSendErrors prometheus.Counter
}

func NewService() *Service {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Service{
		registry: registry,
		messageDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "messenger_message_processing_duration_ms",
			Help:    "Message processing time in milliseconds",
			Buckets: prometheus.LinearBuckets(1, 2, 100),
		}),
		newMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "messenger_new_messages_total",
			Help: "Total number of messages sent",
		}),
		messageSendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "messenger_message_send_errors_total",
			Help: "Number of errors when sending messages",
		}),
	}
}

// ObserveMessageProcessing records one send's end-to-end duration.
func (s *Service) ObserveMessageProcessing(d time.Duration) {
	if s == nil {
		return
	}
	s.messageDuration.Observe(float64(d) / float64(time.Millisecond))
}

func (s *Service) MessageSent() {
	if s == nil {
		return
	}
	s.newMessages.Inc()
}

func (s *Service) MessageSendFailed() {
	if s == nil {
		return
	}
	s.messageSendErrors.Inc()
}

// Handler serves the scrape endpoint off this service's registry, not
// the package-global one, so nothing leaks between instances.
func (s *Service) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}
