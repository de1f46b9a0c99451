package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vecinet/portal/internal/core/ports"
)

var voteAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "votes",
		Name:      "attempts_total",
		Help:      "Vote attempts by outcome and failure reason.",
	},
	[]string{"outcome", "reason"},
)

func observeVoteReceipt(receipt *ports.VoteReceipt) {
	if receipt.OK {
		voteAttempts.WithLabelValues("success", "").Inc()
		return
	}
	voteAttempts.WithLabelValues("failure", receipt.Message).Inc()
}
