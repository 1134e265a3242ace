package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsServer builds a server exposing g at /metrics. It does not listen until the caller starts it.
func NewMetricsServer(addr string, g prometheus.Gatherer, logger *log.Logger) *http.Server {
	router := NewBasicRouter()
	router.Use(Logging(logger.WithPrefix("metrics")))
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(Ping))
	router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog: logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
