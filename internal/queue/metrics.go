package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "queue_messages_total",
	Help: "Consumed messages by topic and outcome",
}, []string{"topic", "outcome"})
