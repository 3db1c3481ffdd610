package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var adminAuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mapguess_admin_auth_failures_total",
	Help: "Total number of admin requests rejected because of a wrong password.",
})
