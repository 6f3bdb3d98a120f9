// Package metrics exposes prometheus collectors for the archival pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsArchived counts records appended to archives.
	RecordsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "esque",
		Subsystem: "archive",
		Name:      "records_written_total",
		Help:      "Number of records appended to archives.",
	})

	// SegmentsCreated counts segment directories minted by writers.
	SegmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "esque",
		Subsystem: "archive",
		Name:      "segments_created_total",
		Help:      "Number of schema segments created.",
	})

	// RecordsRead counts records reconstructed from archives.
	RecordsRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "esque",
		Subsystem: "archive",
		Name:      "records_read_total",
		Help:      "Number of records read back from archives.",
	})

	// RecordsReplayed counts records produced back to a topic from an archive.
	RecordsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "esque",
		Subsystem: "replay",
		Name:      "records_produced_total",
		Help:      "Number of archived records replayed to Kafka.",
	})
)
