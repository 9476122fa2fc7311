package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_transfers_synced_total",
		Help: "Total number of transfers mirrored into the legacy ledger",
	})

	syncFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_transfers_sync_failed_total",
		Help: "Total number of transfers that failed to sync",
	})

	pairSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_pairs_settled_total",
		Help: "Total number of bridge transfers settled in the legacy ledger",
	})

	pairAbortedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_pairs_aborted_total",
		Help: "Total number of settlements rolled back because a leg was already matched",
	})

	sweepRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_sweep_rows_total",
		Help: "Total number of unpaired rows visited by sweeps",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_sync_batch_duration_seconds",
		Help:    "Time taken by one primary sync batch",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
