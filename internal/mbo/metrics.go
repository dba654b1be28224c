package mbo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	callSucceeded = "true"
	callRejected  = "false"
	callErrored   = "error"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_mbo_calls_total",
			Help: "Booking system calls by function and outcome (true, false, error)",
		},
		[]string{"function", "success"},
	)
	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roster_mbo_call_duration_seconds",
			Help:    "Booking system call latency including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"function"},
	)
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_mbo_retries_total",
			Help: "Retried booking system attempts by function",
		},
		[]string{"function"},
	)
)
