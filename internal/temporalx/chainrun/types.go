package chainrun

import "time"

const (
	WorkflowName = "chain_run"
	ActivityTick = "chain_run_tick"
	// SignalWake cuts a poll sleep short, e.g. after a dubber finishes a segment.
	SignalWake = "chain_wake"
)

// WorkflowIDPrefix plus the chain id names the one workflow per chain.
const WorkflowIDPrefix = "chain-"

type Input struct {
	ChainID      string        `json:"chain_id"`
	PollInterval time.Duration `json:"poll_interval,omitempty"`
	// MaxCraftsPerTick bounds back-to-back crafts before the workflow yields.
	MaxCraftsPerTick int `json:"max_crafts_per_tick,omitempty"`
}

type TickResult struct {
	ChainID string `json:"chain_id"`
	Outcome string `json:"outcome"`
	Offset  int64  `json:"offset,omitempty"`
	Picks   int    `json:"picks,omitempty"`
}
