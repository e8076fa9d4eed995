package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP collectors.  They are registered on the registry
// passed to NewMetrics so tests can use a private one.
type Metrics struct {
    requests *prometheus.CounterVec
    latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
    m := &Metrics{
        requests: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "account",
            Name:      "http_requests_total",
            Help:      "HTTP requests by route, method and status.",
        }, []string{"route", "method", "status"}),
        latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
            Namespace: "account",
            Name:      "http_request_duration_seconds",
            Help:      "HTTP request latency by route.",
            Buckets:   prometheus.DefBuckets,
        }, []string{"route", "method"}),
    }
    reg.MustRegister(m.requests, m.latency)
    return m
}

// Middleware records one observation per request.  Errors are rendered
// here so the recorded status is the final one.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route, method := c.Path(), c.Request().Method
            m.requests.WithLabelValues(route, method, strconv.Itoa(c.Response().Status)).Inc()
            m.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
            return nil
        }
    }
}
