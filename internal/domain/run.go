package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncAction classifies what the diff decided for one item.
type SyncAction string

const (
	ActionCreate    SyncAction = "create"
	ActionUpdate    SyncAction = "update"
	ActionUnchanged SyncAction = "unchanged"
	ActionDelete    SyncAction = "delete"
)

// RunStatus is the orchestrator state machine position, recorded on the run
// report as it advances.
type RunStatus string

const (
	RunIdle       RunStatus = "idle"
	RunPulling    RunStatus = "pulling"
	RunMapping    RunStatus = "mapping"
	RunDiffing    RunStatus = "diffing"
	RunApplying   RunStatus = "applying"
	RunCommitting RunStatus = "committing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// ItemResult is the per-item outcome of the apply phase.
type ItemResult struct {
	ChmsID string     `json:"chms_id"`
	Action SyncAction `json:"action"`
	Error  string     `json:"error,omitempty"`
}

// RunReport summarizes one orchestrator run. It is handed to the run store
// for the admin surface and does not otherwise persist pipeline state.
type RunReport struct {
	ID          uuid.UUID    `json:"id"`
	ContentType ContentType  `json:"content_type"`
	Status      RunStatus    `json:"status"`
	Forced      bool         `json:"forced"`
	Created     int          `json:"created"`
	Updated     int          `json:"updated"`
	Unchanged   int          `json:"unchanged"`
	Deleted     int          `json:"deleted"`
	Failed      int          `json:"failed"`
	Error       string       `json:"error,omitempty"`
	Items       []ItemResult `json:"items,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// NewRunReport starts a report in the idle state.
func NewRunReport(ct ContentType) *RunReport {
	return &RunReport{
		ID:          uuid.New(),
		ContentType: ct,
		Status:      RunIdle,
		StartedAt:   time.Now().UTC(),
	}
}

// Record tallies one item outcome into the report counters.
func (r *RunReport) Record(res ItemResult) {
	r.Items = append(r.Items, res)
	if res.Error != "" {
		r.Failed++
		return
	}
	switch res.Action {
	case ActionCreate:
		r.Created++
	case ActionUpdate:
		r.Updated++
	case ActionUnchanged:
		r.Unchanged++
	case ActionDelete:
		r.Deleted++
	}
}
