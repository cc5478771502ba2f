package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "agenda_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"route", "method", "status"},
	)

	// StoreOperations tracks store operations
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenda_store_operations_total",
			Help: "Number of contact store operations",
		},
		[]string{"operation", "status"},
	)

	// ImportedContacts tracks contacts received by bulk imports
	ImportedContacts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agenda_imported_contacts_total",
			Help: "Number of contacts stored by bulk imports",
		},
	)
)
