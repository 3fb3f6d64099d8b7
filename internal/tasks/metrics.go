package tasks

import "github.com/prometheus/client_golang/prometheus"

var accessDenied = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasks_access_denied_total",
		Help: "Edits and deletes rejected because the caller does not own the task",
	},
	[]string{"op"},
)

func init() {
	prometheus.MustRegister(accessDenied)
}
