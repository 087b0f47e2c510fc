package models

import (
	"encoding/json"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func snapshotFixture() *EvaluationSnapshot {
	return &EvaluationSnapshot{
		EvaluationID: 1,
		Title:        "Algebra Quiz",
		Questions: []QuestionSnapshot{
			{ID: 1, Type: QuestionSingleChoice, Points: 2, Options: []OptionSnapshot{
				{ID: 11, Text: "a"},
				{ID: 12, Text: "b", IsCorrect: true},
			}},
			{ID: 2, Type: QuestionTrueFalse, Points: 3, Options: []OptionSnapshot{
				{ID: 21, Text: "True", IsCorrect: true},
				{ID: 22, Text: "False"},
			}},
			{ID: 3, Type: QuestionOpenText, Points: 10},
		},
	}
}

func TestEvaluationSnapshot_AutoGradableMax(t *testing.T) {
	s := snapshotFixture()
	if got := s.AutoGradableMax(); got != 5 {
		t.Errorf("AutoGradableMax() = %v, want 5 (open text excluded)", got)
	}
}

func TestEvaluationSnapshot_HasOpenQuestions(t *testing.T) {
	s := snapshotFixture()
	if !s.HasOpenQuestions() {
		t.Error("Expected open questions to be detected")
	}

	s.Questions = s.Questions[:2]
	if s.HasOpenQuestions() {
		t.Error("Choice-only snapshot must report no open questions")
	}
}

func TestEvaluationSnapshot_Lookups(t *testing.T) {
	s := snapshotFixture()

	q := s.Question(2)
	if q == nil || q.Type != QuestionTrueFalse {
		t.Fatalf("Question(2) = %+v", q)
	}
	if s.Question(99) != nil {
		t.Error("Unknown question id must return nil")
	}

	o := q.Option(21)
	if o == nil || !o.IsCorrect {
		t.Errorf("Option(21) = %+v", o)
	}
	if q.Option(11) != nil {
		t.Error("Option from another question must return nil")
	}

	if c := q.CorrectOption(); c == nil || c.ID != 21 {
		t.Errorf("CorrectOption() = %+v", c)
	}
}

func TestEvaluationSnapshot_WindowOpen(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from *time.Time
		to   *time.Time
		want bool
	}{
		{"NoWindow", nil, nil, true},
		{"Inside", timePtr(now.Add(-time.Hour)), timePtr(now.Add(time.Hour)), true},
		{"BeforeStart", timePtr(now.Add(time.Hour)), nil, false},
		{"AfterEnd", nil, timePtr(now.Add(-time.Minute)), false},
		{"OpenEnded", timePtr(now.Add(-time.Hour)), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snapshotFixture()
			s.ActiveFrom = tt.from
			s.ActiveTo = tt.to
			if got := s.WindowOpen(now); got != tt.want {
				t.Errorf("WindowOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttempt_SnapshotRoundTrip(t *testing.T) {
	raw, err := json.Marshal(snapshotFixture())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	attempt := &Attempt{Snapshot: raw}
	decoded, err := attempt.DecodeSnapshot()
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}

	if decoded.EvaluationID != 1 || len(decoded.Questions) != 3 {
		t.Errorf("Decoded snapshot mismatch: %+v", decoded)
	}
	if decoded.Questions[0].Options[1].IsCorrect != true {
		t.Error("Correctness flags must survive the round trip")
	}
}

func TestAttempt_OpenAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("NoLimit_StaysOpen", func(t *testing.T) {
		a := &Attempt{StartedAt: now.Add(-24 * time.Hour)}
		if !a.IsOpen(now) {
			t.Error("Attempt without a time limit must stay open")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		expires := now.Add(-time.Minute)
		a := &Attempt{ExpiresAt: &expires}
		if a.IsOpen(now) {
			t.Error("Expired attempt must be closed")
		}
		if !a.IsExpired(now) {
			t.Error("Expected IsExpired")
		}
	})

	t.Run("Submitted", func(t *testing.T) {
		submitted := now.Add(-time.Minute)
		a := &Attempt{SubmittedAt: &submitted}
		if a.IsOpen(now) {
			t.Error("Submitted attempt must be closed")
		}
	})

	t.Run("ExactDeadline_StillOpen", func(t *testing.T) {
		a := &Attempt{ExpiresAt: &now}
		if a.IsExpired(now) {
			t.Error("Deadline instant itself is not past the deadline")
		}
	})
}
