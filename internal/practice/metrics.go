package practice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recognitionRestarts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "practice_recognition_restarts_total",
	Help: "Number of recognition restarts requested after a spontaneous end or error.",
})
