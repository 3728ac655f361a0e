package entity

import "time"

// Step is one policy decision applied to the model. ViewBefore is the
// view the policy decided in (for perception variants this is its own,
// possibly wrong, estimate).
type Step struct {
	T               int         `json:"t"`
	ViewBefore      View        `json:"view_before"`
	Action          Action      `json:"action"`
	PostconditionOK bool        `json:"postcondition_ok"`
	Event           string      `json:"event,omitempty"`
	StateAfter      Observation `json:"state_after"`
	OracleDone      bool        `json:"oracle_done"`
}

// EpisodeRecord is the immutable outcome of one episode. StepsToSuccess
// is nil when the step budget ran out before the oracle fired.
type EpisodeRecord struct {
	TaskID         string       `json:"task_id"`
	WorkloadType   WorkloadType `json:"workload_type"`
	AgentVariant   string       `json:"agent_variant"`
	Success        bool         `json:"success"`
	StepsToSuccess *int         `json:"steps_to_success"`
	Steps          []Step       `json:"steps"`
	OracleTargetID string       `json:"oracle_target_id,omitempty"`
	StartTS        time.Time    `json:"start_ts"`
	EndTS          time.Time    `json:"end_ts"`
}
