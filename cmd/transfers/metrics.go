package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricIndexerLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transfers",
		Subsystem: "indexer",
		Name:      "level",
		Help:      "Last block height handed over to the storage channel",
	})
	metricSavedTransfers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "transfers",
		Subsystem: "indexer",
		Name:      "saved_total",
		Help:      "Count of transfers written to the database",
	})
	metricFilledTimestamps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "transfers",
		Subsystem: "filler",
		Name:      "filled_total",
		Help:      "Count of transfers whose block time was resolved",
	})
)
