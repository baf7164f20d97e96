// Package metrics registers the Prometheus collectors shared by every
// block and store in a process. Registration follows the sync.Once +
// MustRegister idiom used elsewhere in this codebase (see
// pkg/blobstore/local's hashingKeyLocationMap in the history of this
// tree) so that constructing many stores in tests or in a single
// process does not attempt to register the same collector twice.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// InsertOutcome labels the Inserts counter.
type InsertOutcome string

const (
	InsertOutcomeOK            InsertOutcome = "ok"
	InsertOutcomeTableMismatch InsertOutcome = "table_mismatch"
	InsertOutcomeAlreadyExists InsertOutcome = "already_exists"
	InsertOutcomeBlockFull     InsertOutcome = "block_full"
)

var (
	// Inserts counts insert attempts by table and outcome.
	Inserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_store",
			Name:      "inserts_total",
			Help:      "Number of slot insert attempts, partitioned by table and outcome.",
		},
		[]string{"table", "outcome"})

	// GapReuse counts whether an insert reused a gap slot or appended a
	// fresh one.
	GapReuse = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_store",
			Name:      "gap_reuse_total",
			Help:      "Number of inserts that reused a gap slot versus appended a new one, partitioned by table.",
		},
		[]string{"table", "reused"})

	// BlocksCreated counts block creations by table.
	BlocksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_store",
			Name:      "blocks_created_total",
			Help:      "Number of blocks created by a store, partitioned by table.",
		},
		[]string{"table"})

	// SlotAccessDuration observes the latency of ReadWith/WriteWith
	// calls through a handle.
	SlotAccessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "record_store",
			Name:      "slot_access_duration_seconds",
			Help:      "Time spent in a slot ReadWith/WriteWith call, lock acquisition included, partitioned by table and access mode.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table", "mode"})

	// StaleHandles counts StaleHandle occurrences, partitioned by table.
	StaleHandles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_store",
			Name:      "stale_handles_total",
			Help:      "Number of operations through a handle that failed its generation check.",
		},
		[]string{"table"})
)

// Register registers every collector exactly once per process.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Inserts)
		prometheus.MustRegister(GapReuse)
		prometheus.MustRegister(BlocksCreated)
		prometheus.MustRegister(SlotAccessDuration)
		prometheus.MustRegister(StaleHandles)
	})
}
