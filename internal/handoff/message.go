// Package handoff constructs bounded inter-agent messages and synthesizes
// the per-batch handoff messages for an execution plan.
package handoff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ShayCichocki/cohort/pkg/models"
)

// ValidationError reports a malformed message field. Recoverable: the caller
// corrects the input and retries.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// charsPerToken is the estimation heuristic used for summary budgets.
const charsPerToken = 4

// EstimateTokens approximates the token length of a text.
func EstimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// messageOverheadTokens covers the fixed envelope fields (ids, status, risk,
// confidence) when sizing a whole message.
const messageOverheadTokens = 12

// EstimateMessageTokens returns the approximate token footprint of one
// message, envelope included. Pure sizing; the message is never mutated.
func EstimateMessageTokens(msg models.AgentMessage) int {
	tokens := messageOverheadTokens
	tokens += EstimateTokens(msg.Summary)
	tokens += EstimateTokens(msg.NextAction)
	for _, a := range msg.Artifacts {
		tokens += EstimateTokens(a)
	}
	for _, n := range msg.Needs {
		tokens += EstimateTokens(n)
	}
	return tokens
}

// EstimateBatchTokens sums the footprint of a message sequence.
func EstimateBatchTokens(msgs []models.AgentMessage) int {
	total := 0
	for _, msg := range msgs {
		total += EstimateMessageTokens(msg)
	}
	return total
}

// Compact bounds raw text to the policy's summary cap, truncating on a word
// boundary. Raw transcripts are the caller's concern: when the policy forbids
// them, they are never passed into the summary at all (see Builder.Build).
func Compact(raw string, policy models.HandoffPolicy) string {
	raw = strings.TrimSpace(raw)
	if EstimateTokens(raw) <= policy.MaxSummaryTokens {
		return raw
	}

	limit := policy.MaxSummaryTokens * charsPerToken
	if limit <= 0 {
		return ""
	}
	// Back up to a rune start so the byte cut never splits a multi-byte
	// character.
	for limit > 0 && !utf8.RuneStart(raw[limit]) {
		limit--
	}
	cut := raw[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// Fields carries the caller-supplied inputs for one message.
type Fields struct {
	RunID      string
	TaskID     string
	Sender     string
	Recipient  string
	Status     models.MessageStatus
	Confidence int
	RiskLevel  models.RiskLevel
	Summary    string
	// Transcript is an optional raw transcript. It is appended to the
	// summary only when the policy allows raw transcripts; otherwise it is
	// dropped and must be referenced through an artifact pointer instead.
	Transcript string
	Artifacts  []string
	Needs      []string
	NextAction string
}

// Builder constructs validated, policy-compacted agent messages.
type Builder struct {
	policy      models.HandoffPolicy
	coordinator string
}

// NewBuilder returns a Builder for the given policy and coordinator identity.
// The coordinator receives every message whose risk level is in the policy's
// escalation set.
func NewBuilder(policy models.HandoffPolicy, coordinator string) *Builder {
	return &Builder{policy: policy, coordinator: coordinator}
}

// Build validates the fields and constructs an immutable message.
//
// The escalation rule is a hard invariant: a message whose risk level is in
// the policy's escalation set is addressed to the coordinator regardless of
// the recipient the caller asked for.
func (b *Builder) Build(fields Fields) (models.AgentMessage, error) {
	var zero models.AgentMessage

	if fields.RunID == "" {
		return zero, &ValidationError{Field: "run_id", Detail: "must not be empty"}
	}
	if fields.TaskID == "" {
		return zero, &ValidationError{Field: "task_id", Detail: "must not be empty"}
	}
	if fields.Sender == "" {
		return zero, &ValidationError{Field: "sender", Detail: "must not be empty"}
	}
	if !fields.Status.Valid() {
		return zero, &ValidationError{Field: "status", Detail: fmt.Sprintf("unknown status %q", fields.Status)}
	}
	if !fields.RiskLevel.Valid() {
		return zero, &ValidationError{Field: "risk_level", Detail: fmt.Sprintf("unknown risk level %q", fields.RiskLevel)}
	}
	if fields.Confidence < 0 || fields.Confidence > 100 {
		return zero, &ValidationError{Field: "confidence", Detail: fmt.Sprintf("must be in [0,100], got %d", fields.Confidence)}
	}

	summary := fields.Summary
	if fields.Transcript != "" && b.policy.AllowRawTranscript {
		summary = strings.TrimSpace(summary + "\n" + fields.Transcript)
	}
	summary = Compact(summary, b.policy)
	if EstimateTokens(summary) > b.policy.MaxSummaryTokens {
		return zero, &ValidationError{
			Field:  "summary",
			Detail: fmt.Sprintf("exceeds %d tokens after compaction", b.policy.MaxSummaryTokens),
		}
	}

	recipient := fields.Recipient
	if b.policy.Escalates(fields.RiskLevel) {
		recipient = b.coordinator
	}
	if recipient == "" {
		return zero, &ValidationError{Field: "recipient", Detail: "must not be empty"}
	}

	return models.AgentMessage{
		RunID:      fields.RunID,
		TaskID:     fields.TaskID,
		Sender:     fields.Sender,
		Recipient:  recipient,
		Status:     fields.Status,
		Confidence: fields.Confidence,
		RiskLevel:  fields.RiskLevel,
		Summary:    summary,
		Artifacts:  append([]string(nil), fields.Artifacts...),
		Needs:      append([]string(nil), fields.Needs...),
		NextAction: fields.NextAction,
	}, nil
}
