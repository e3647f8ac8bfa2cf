package catalog

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httpclient"
)

const (
	endpointProducts = "products"
	endpointItem     = "item"
	endpointFamilies = "families"
)

var (
	catalogFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetch_total",
			Help: "Upstream catalog requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	catalogFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Upstream catalog request duration including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"endpoint"},
	)
)

func observeFetch(endpoint string, start time.Time, err error) {
	catalogFetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	catalogFetchTotal.WithLabelValues(endpoint, outcome(err)).Inc()
}

func outcome(err error) string {
	var decodeErr *httpclient.DecodeError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &decodeErr):
		return "malformed"
	default:
		return "error"
	}
}
