// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded in the requests counter.
const (
	outcomeSuccess    = "success"
	outcomeSent       = "sent"
	outcomeConnection = "connection_error"
	outcomeRemote     = "remote_error"
	outcomeMalformed  = "malformed"
	outcomeAuth       = "auth_error"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "agsadmin",
		Name:      "requests_total",
		Help:      "Requests sent to the ArcGIS Server site",
	},
	[]string{
		"operation",
		"outcome",
	},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "agsadmin",
		Name:      "request_duration_seconds",
		Help:      "Time spent waiting for the ArcGIS Server site",
		Buckets:   prometheus.ExponentialBuckets(0.05, 4, 7),
	},
	[]string{
		"operation",
	},
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}

func (c *Client) observe(op, outcome string, start time.Time) {
	requestsTotal.With(prometheus.Labels{
		"operation": op,
		"outcome":   outcome,
	}).Inc()
	requestDuration.With(prometheus.Labels{
		"operation": op,
	}).Observe(c.now().Sub(start).Seconds())
}
