package classify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var classificationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_classification_verdicts",
	Help: "Number of classification verdicts produced, by method and outcome",
}, []string{"method", "outcome"})

var classificationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_classification_errors",
	Help: "Number of classification backend failures (degraded to unflagged verdicts)",
}, []string{"method"})

var classificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "chaperone_classification_duration_sec",
	Help: "Duration of slow-path classification calls",
}, []string{"method"})
