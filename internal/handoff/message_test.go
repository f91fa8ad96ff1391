package handoff

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ShayCichocki/cohort/pkg/models"
)

func baseFields() Fields {
	return Fields{
		RunID:      "run-1",
		TaskID:     "task-1",
		Sender:     "agent-a",
		Recipient:  "agent-b",
		Status:     models.MessageStatusDone,
		Confidence: 90,
		RiskLevel:  models.RiskLow,
		Summary:    "implemented the parser and added tests",
	}
}

func TestBuild_Valid(t *testing.T) {
	builder := NewBuilder(models.DefaultHandoffPolicy(), "coordinator")
	msg, err := builder.Build(baseFields())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if msg.Recipient != "agent-b" {
		t.Errorf("recipient = %s, want caller's agent-b for low risk", msg.Recipient)
	}
	if msg.Summary != "implemented the parser and added tests" {
		t.Errorf("short summary should survive compaction untouched, got %q", msg.Summary)
	}
}

func TestBuild_EscalationOverridesRecipient(t *testing.T) {
	builder := NewBuilder(models.DefaultHandoffPolicy(), "coordinator")

	tests := []struct {
		risk          models.RiskLevel
		wantRecipient string
	}{
		{models.RiskLow, "agent-b"},
		{models.RiskMedium, "agent-b"},
		{models.RiskHigh, "coordinator"},
		{models.RiskCritical, "coordinator"},
	}

	for _, tc := range tests {
		t.Run(string(tc.risk), func(t *testing.T) {
			fields := baseFields()
			fields.RiskLevel = tc.risk
			msg, err := builder.Build(fields)
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}
			if msg.Recipient != tc.wantRecipient {
				t.Errorf("recipient = %s, want %s", msg.Recipient, tc.wantRecipient)
			}
		})
	}
}

func TestBuild_Rejections(t *testing.T) {
	builder := NewBuilder(models.DefaultHandoffPolicy(), "coordinator")

	tests := []struct {
		name   string
		mutate func(*Fields)
		field  string
	}{
		{"confidence below range", func(f *Fields) { f.Confidence = -1 }, "confidence"},
		{"confidence above range", func(f *Fields) { f.Confidence = 101 }, "confidence"},
		{"unknown status", func(f *Fields) { f.Status = "paused" }, "status"},
		{"unknown risk level", func(f *Fields) { f.RiskLevel = "extreme" }, "risk_level"},
		{"empty run id", func(f *Fields) { f.RunID = "" }, "run_id"},
		{"empty task id", func(f *Fields) { f.TaskID = "" }, "task_id"},
		{"empty sender", func(f *Fields) { f.Sender = "" }, "sender"},
		{"empty recipient without escalation", func(f *Fields) { f.Recipient = "" }, "recipient"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields := baseFields()
			tc.mutate(&fields)
			_, err := builder.Build(fields)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %s, want %s", verr.Field, tc.field)
			}
		})
	}
}

func TestBuild_EmptyRecipientAllowedWhenEscalating(t *testing.T) {
	builder := NewBuilder(models.DefaultHandoffPolicy(), "coordinator")
	fields := baseFields()
	fields.Recipient = ""
	fields.RiskLevel = models.RiskCritical

	msg, err := builder.Build(fields)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if msg.Recipient != "coordinator" {
		t.Errorf("recipient = %s, want coordinator", msg.Recipient)
	}
}

func TestCompact_BoundsSummary(t *testing.T) {
	policy := models.HandoffPolicy{MaxSummaryTokens: 10}
	long := strings.Repeat("lengthy words about the task outcome ", 20)

	compacted := Compact(long, policy)
	if got := EstimateTokens(compacted); got > policy.MaxSummaryTokens {
		t.Errorf("compacted summary is %d tokens, cap is %d", got, policy.MaxSummaryTokens)
	}
	if compacted == "" {
		t.Error("compaction should keep a prefix, not empty the summary")
	}
	if strings.HasSuffix(compacted, " ") {
		t.Error("compacted summary should be trimmed")
	}
}

func TestCompact_MultibyteRuneBoundary(t *testing.T) {
	policy := models.HandoffPolicy{MaxSummaryTokens: 10}
	// No spaces anywhere, so truncation cannot fall back to a word boundary.
	long := strings.Repeat("日本語テキスト", 40)

	compacted := Compact(long, policy)
	if !utf8.ValidString(compacted) {
		t.Errorf("compacted summary is not valid UTF-8: %q", compacted)
	}
	if got := EstimateTokens(compacted); got > policy.MaxSummaryTokens {
		t.Errorf("compacted summary is %d tokens, cap is %d", got, policy.MaxSummaryTokens)
	}
	if compacted == "" {
		t.Error("compaction should keep a prefix, not empty the summary")
	}
	if !strings.HasPrefix(long, compacted) {
		t.Errorf("compacted summary %q is not a prefix of the input", compacted)
	}
}

func TestBuild_TranscriptHandling(t *testing.T) {
	transcript := "full transcript line one\nfull transcript line two"

	t.Run("dropped when disallowed", func(t *testing.T) {
		policy := models.DefaultHandoffPolicy() // AllowRawTranscript false
		builder := NewBuilder(policy, "coordinator")
		fields := baseFields()
		fields.Transcript = transcript
		fields.Artifacts = []string{"artifact://run-1/task-1/transcript"}

		msg, err := builder.Build(fields)
		if err != nil {
			t.Fatalf("Build() failed: %v", err)
		}
		if strings.Contains(msg.Summary, "transcript line") {
			t.Errorf("transcript embedded despite policy: %q", msg.Summary)
		}
		if len(msg.Artifacts) != 1 {
			t.Error("artifact pointer to the transcript should be preserved")
		}
	})

	t.Run("embedded when allowed", func(t *testing.T) {
		policy := models.DefaultHandoffPolicy()
		policy.AllowRawTranscript = true
		builder := NewBuilder(policy, "coordinator")
		fields := baseFields()
		fields.Transcript = transcript

		msg, err := builder.Build(fields)
		if err != nil {
			t.Fatalf("Build() failed: %v", err)
		}
		if !strings.Contains(msg.Summary, "transcript line one") {
			t.Errorf("transcript should be embedded under permissive policy, got %q", msg.Summary)
		}
	})
}

func TestEstimateMessageTokens(t *testing.T) {
	msg := models.AgentMessage{
		Summary:    strings.Repeat("word ", 40), // 200 chars -> 50 tokens
		NextAction: "continue",
		Artifacts:  []string{"artifact://r/a"},
		Needs:      []string{"a"},
	}

	got := EstimateMessageTokens(msg)
	if got <= messageOverheadTokens {
		t.Errorf("estimate %d should exceed bare envelope overhead", got)
	}

	// Pure sizing: repeated calls agree and the message is untouched.
	if again := EstimateMessageTokens(msg); again != got {
		t.Errorf("estimate changed between calls: %d then %d", got, again)
	}

	batch := []models.AgentMessage{msg, msg, msg}
	if total := EstimateBatchTokens(batch); total != 3*got {
		t.Errorf("batch estimate = %d, want %d", total, 3*got)
	}
}
