// Package metrics registers the prometheus instrumentation for the
// player-state layer. Counters are package-level; exposition is wired by the
// embedding process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProfileFlushes counts background and forced profile writes by result
	// (ok, failed).
	ProfileFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_server_profile_flushes_total",
		Help: "Profile writes to durable storage, by result.",
	}, []string{"result"})

	// SessionSaves counts durable session saves by result (ok, conflict,
	// failed).
	SessionSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_server_session_saves_total",
		Help: "Contract session saves, by result.",
	}, []string{"result"})

	// SessionLoads counts session loads by source (durable, memory, miss).
	SessionLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_server_session_loads_total",
		Help: "Contract session loads, by source.",
	}, []string{"source"})
)
