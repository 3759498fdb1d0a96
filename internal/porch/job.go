package porch

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// SweepArgs is the payload of the periodic job that releases stale task
// claims. It carries no data; the sweep interval and TTL come from the
// service configuration.
type SweepArgs struct{}

// Kind returns the River job kind used to register and dispatch the sweep
// worker.
func (SweepArgs) Kind() string { return "ReleaseStaleClaimsJob" }

// InsertOpts keeps at most one sweep job queued or running at any time.
func (SweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
