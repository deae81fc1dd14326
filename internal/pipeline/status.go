package pipeline

import (
	"time"

	"github.com/rtm0/solargrid/internal/partition"
)

// Phase is the stage a run is in.
type Phase string

// Phases in the order a run goes through them.
const (
	PhaseIdle         Phase = "not started"
	PhasePartitioning Phase = "partitioning"
	PhaseRunning      Phase = "running"
	PhaseDone         Phase = "done"
)

// Status is a point-in-time view of a run.
type Status struct {
	Phase     Phase
	Start     time.Time
	End       time.Time
	Workers   int
	Ranges    []partition.Range
	TotalDays int
	Written   int
	Failed    int
}
