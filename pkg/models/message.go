package models

// MessageStatus represents the execution state carried by an agent message.
type MessageStatus string

const (
	// MessageStatusQueued indicates the task is waiting to start.
	MessageStatusQueued MessageStatus = "queued"
	// MessageStatusRunning indicates the task is being worked on.
	MessageStatusRunning MessageStatus = "running"
	// MessageStatusBlocked indicates the task cannot proceed.
	MessageStatusBlocked MessageStatus = "blocked"
	// MessageStatusDone indicates the task completed successfully.
	MessageStatusDone MessageStatus = "done"
	// MessageStatusFailed indicates the task failed.
	MessageStatusFailed MessageStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusQueued, MessageStatusRunning, MessageStatusBlocked,
		MessageStatusDone, MessageStatusFailed:
		return true
	default:
		return false
	}
}

// RiskLevel classifies how risky the work described by a message is.
type RiskLevel string

const (
	// RiskLow is routine work with no escalation needed.
	RiskLow RiskLevel = "low"
	// RiskMedium is work that merits reviewer attention.
	RiskMedium RiskLevel = "medium"
	// RiskHigh is work that must be escalated to the coordinator.
	RiskHigh RiskLevel = "high"
	// RiskCritical is work that must be escalated and may halt the run.
	RiskCritical RiskLevel = "critical"
)

// Valid returns true if the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// AgentMessage is the fixed-shape inter-agent handoff message.
// Messages are immutable once constructed; use handoff.BuildMessage so the
// summary cap and escalation rules are enforced at construction time.
//
// Confidence is an integer percentage in [0,100]. The schema definition wins
// over historical payloads that carried a fraction.
type AgentMessage struct {
	// RunID identifies the orchestration run this message belongs to.
	RunID string `json:"run_id"`
	// TaskID is the task the message is about.
	TaskID string `json:"task_id"`
	// Sender is the agent identity that produced the message.
	Sender string `json:"sender"`
	// Recipient is the agent identity the message is addressed to.
	Recipient string `json:"recipient"`
	// Status is the execution state being reported.
	Status MessageStatus `json:"status"`
	// Confidence is the sender's confidence in the summary, 0-100.
	Confidence int `json:"confidence"`
	// RiskLevel classifies the risk of the described work.
	RiskLevel RiskLevel `json:"risk_level"`
	// Summary is bounded text describing the state of the task.
	Summary string `json:"summary"`
	// Artifacts are pointers to produced outputs, never inline content.
	Artifacts []string `json:"artifacts,omitempty"`
	// Needs lists task IDs whose outputs this task is still waiting on.
	Needs []string `json:"needs,omitempty"`
	// NextAction describes what the recipient should do next.
	NextAction string `json:"next_action,omitempty"`
}

// HandoffPolicy bounds and governs message compaction.
// A policy is never mutated after a planning run starts.
type HandoffPolicy struct {
	// MaxSummaryTokens caps the token length of a message summary.
	MaxSummaryTokens int `json:"max_summary_tokens" yaml:"max_summary_tokens"`
	// AllowRawTranscript permits embedding full transcripts in summaries.
	// When false, only artifact pointers may reference transcripts.
	AllowRawTranscript bool `json:"allow_raw_transcript" yaml:"allow_raw_transcript"`
	// EscalateOnRisk lists risk levels that force the message recipient
	// to the coordinator identity.
	EscalateOnRisk []RiskLevel `json:"escalate_on_risk" yaml:"escalate_on_risk"`
}

// Escalates returns true if the given risk level is in the escalation set.
func (p HandoffPolicy) Escalates(r RiskLevel) bool {
	for _, level := range p.EscalateOnRisk {
		if level == r {
			return true
		}
	}
	return false
}

// DefaultHandoffPolicy returns the standard policy: 150-token summaries,
// no raw transcripts, escalation on high and critical risk.
func DefaultHandoffPolicy() HandoffPolicy {
	return HandoffPolicy{
		MaxSummaryTokens:   150,
		AllowRawTranscript: false,
		EscalateOnRisk:     []RiskLevel{RiskHigh, RiskCritical},
	}
}
