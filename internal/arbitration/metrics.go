package arbitration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitration_challenges_total",
		Help: "Challenge attempts by terminal state",
	}, []string{"state"})

	candidatesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbitration_candidates_scanned_total",
		Help: "Source transfers considered by the candidate scan",
	})
)
