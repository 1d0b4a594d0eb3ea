package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_event_process_count",
	Help: "Number of inbound chat events processed",
}, []string{"kind"})

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "chaperone_event_process_duration",
	Help:    "Duration of inbound event processing, in seconds",
	Buckets: prometheus.ExponentialBucketsRange(0.0001, 2.0, 15),
}, []string{"kind"})

var autoFlagCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_auto_flag_count",
	Help: "Number of messages flagged by the automated scan",
}, []string{"method"})

var newCaseCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_new_case_count",
	Help: "Number of moderation cases opened",
}, []string{"source"})

var modActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_mod_action_count",
	Help: "Number of moderator actions executed on cases",
}, []string{"action"})

var escalationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chaperone_escalation_count",
	Help: "Number of case escalations",
}, []string{"tier"})

var infractionStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chaperone_infraction_store_error_count",
	Help: "Number of failed writes to the external infraction store",
})
