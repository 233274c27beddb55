package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "practice_attempts_started_total",
		Help: "Number of practice attempts started.",
	})
	attemptsJudged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "practice_attempts_judged_total",
		Help: "Number of practice attempts judged.",
	})
	disqualifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "practice_disqualifications_total",
		Help: "Number of judged attempts that were disqualified.",
	})
	captureUnavailable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "practice_capture_unavailable_total",
		Help: "Number of Start calls refused because no capture mechanism was available.",
	})
	saveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "practice_save_failures_total",
		Help: "Number of judged attempts whose result could not be persisted.",
	})
)
