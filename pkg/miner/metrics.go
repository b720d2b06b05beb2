package miner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the miner's prometheus collectors.
type Metrics struct {
	Attempts prometheus.Counter
	HashRate prometheus.Gauge
	Claims   *prometheus.CounterVec
	Retries  prometheus.Counter
	Received prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "powfaucet",
			Subsystem: "miner",
			Name:      "keypairs_generated_total",
			Help:      "Candidate keypairs generated by the search workers.",
		}),
		HashRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "powfaucet",
			Subsystem: "miner",
			Name:      "keypairs_per_second",
			Help:      "Keypair generation rate of the last search.",
		}),
		Claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powfaucet",
			Subsystem: "miner",
			Name:      "claims_total",
			Help:      "Claim submissions by outcome.",
		}, []string{"outcome"}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "powfaucet",
			Subsystem: "miner",
			Name:      "claim_retries_total",
			Help:      "Claim resubmissions after transient failures.",
		}),
		Received: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "powfaucet",
			Subsystem: "miner",
			Name:      "lamports_received_total",
			Help:      "Lamports paid out to the fee payer.",
		}),
	}
}
