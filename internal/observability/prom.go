package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// CRM (outbound Bitrix24 calls)
	CRMCallDuration *prometheus.HistogramVec
	CRMCallsTotal   *prometheus.CounterVec

	StagesUnrecognized prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "autocabinet",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "autocabinet",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "autocabinet",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "autocabinet",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "autocabinet",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		CRMCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "autocabinet",
				Subsystem: "crm",
				Name:      "call_duration_seconds",
				Help:      "Bitrix24 REST call latency by method and result.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"method", "result"},
		),
		CRMCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "autocabinet",
				Subsystem: "crm",
				Name:      "calls_total",
				Help:      "Bitrix24 REST calls by method and result.",
			},
			[]string{"method", "result"}, // result=ok|remote_error|http_error|transport_error
		),
		StagesUnrecognized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "autocabinet",
				Subsystem: "payments",
				Name:      "unrecognized_stages_total",
				Help:      "Deals whose stage id matched no classification rule.",
			},
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.CRMCallDuration, p.CRMCallsTotal, p.StagesUnrecognized)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveCRM satisfies crm.Observer.
func (p *Prom) ObserveCRM(method, result string, took time.Duration) {
	p.CRMCallsTotal.WithLabelValues(method, result).Inc()
	p.CRMCallDuration.WithLabelValues(method, result).Observe(took.Seconds())
}

func (p *Prom) UnrecognizedStage() {
	p.StagesUnrecognized.Inc()
}
