package services

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

func intPtr(v int) *int { return &v }

func TestRetryAllowed(t *testing.T) {
	tests := []struct {
		name         string
		attemptsUsed int
		maxAttempts  *int
		active       bool
		windowOpen   bool
		want         bool
	}{
		{"AttemptsRemain", 1, intPtr(3), true, true, true},
		{"LimitReached", 3, intPtr(3), true, true, false},
		{"SingleAttemptUsed", 1, intPtr(1), true, true, false},
		{"UnlimitedAttempts", 42, nil, true, true, true},
		{"EvaluationInactive", 0, intPtr(3), false, true, false},
		{"WindowClosed", 0, intPtr(3), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RetryAllowed(tt.attemptsUsed, tt.maxAttempts, tt.active, tt.windowOpen)
			if got != tt.want {
				t.Errorf("RetryAllowed(%d, %v, %v, %v) = %v, want %v",
					tt.attemptsUsed, tt.maxAttempts, tt.active, tt.windowOpen, got, tt.want)
			}
		})
	}
}

func TestSanitizeQuestions_StripsCorrectness(t *testing.T) {
	views := SanitizeQuestions(mixedSnapshot())

	if len(views) != 3 {
		t.Fatalf("Expected 3 question views, got %d", len(views))
	}

	for _, qv := range views {
		for _, ov := range qv.Options {
			if ov.Text == "" {
				t.Errorf("Option %d lost its text", ov.ID)
			}
		}
	}

	// The view type carries no correctness field; verify option identity
	// survives so submissions can reference them.
	if views[0].Options[1].ID != 102 {
		t.Errorf("Expected option id 102, got %d", views[0].Options[1].ID)
	}
}

func TestAnswerRows_MergesGrades(t *testing.T) {
	normalized := []NormalizedAnswer{
		{QuestionID: 10, Answered: true, OptionID: optionID(102)},
		{QuestionID: 20, Answered: true, OptionID: optionID(202)},
		{QuestionID: 30},
	}
	correct := true
	incorrect := false
	grades := []QuestionGrade{
		{QuestionID: 10, IsCorrect: &correct, PointsAwarded: 2},
		{QuestionID: 20, IsCorrect: &incorrect},
		{QuestionID: 30},
	}

	rows := answerRows(7, normalized, grades)

	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.AttemptID != 7 {
			t.Errorf("Row for question %d has attempt id %d", row.QuestionID, row.AttemptID)
		}
	}
	if rows[0].PointsAwarded != 2 || rows[0].IsCorrect == nil || !*rows[0].IsCorrect {
		t.Errorf("Expected graded correct row, got %+v", rows[0])
	}
	if rows[1].PointsAwarded != 0 || rows[1].IsCorrect == nil || *rows[1].IsCorrect {
		t.Errorf("Expected graded incorrect row, got %+v", rows[1])
	}
}

func TestAnswerRows_WithoutGrades(t *testing.T) {
	normalized := []NormalizedAnswer{
		{QuestionID: 10, Answered: true, OptionID: optionID(101)},
	}

	rows := answerRows(3, normalized, nil)

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].IsCorrect != nil || rows[0].PointsAwarded != 0 {
		t.Errorf("Progress rows must carry no grade, got %+v", rows[0])
	}
}

func TestNormalizeRecorded(t *testing.T) {
	snapshot := mixedSnapshot()
	recorded := []*models.AttemptAnswer{
		{AttemptID: 1, QuestionID: 10, SelectedOptionID: optionID(102)},
		{AttemptID: 1, QuestionID: 30, FreeText: textAnswer("partial essay")},
	}

	normalized := normalizeRecorded(snapshot, recorded)

	if len(normalized) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(normalized))
	}

	byQuestion := make(map[uint]NormalizedAnswer)
	for _, entry := range normalized {
		byQuestion[entry.QuestionID] = entry
	}

	if entry := byQuestion[10]; !entry.Answered || entry.OptionID == nil || *entry.OptionID != 102 {
		t.Errorf("Expected recorded choice answer, got %+v", entry)
	}
	if entry := byQuestion[20]; entry.Answered {
		t.Errorf("Question without a recorded row must be unanswered, got %+v", entry)
	}
	if entry := byQuestion[30]; !entry.Answered || entry.Text == nil {
		t.Errorf("Expected recorded open-text answer, got %+v", entry)
	}
}

func TestScoreResult(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	reason := models.CloseReasonSubmitted
	attempt := &models.Attempt{
		ID:                5,
		AttemptNumber:     2,
		Score:             3,
		MaxScore:          5,
		Percentage:        60,
		NeedsManualReview: true,
		SubmittedAt:       &submitted,
		CloseReason:       &reason,
	}

	result := scoreResult(attempt)

	if result.AttemptID != 5 || result.AttemptNumber != 2 {
		t.Errorf("Unexpected attempt identity: %+v", result)
	}
	if result.Score != 3 || result.MaxScore != 5 || result.Percentage != 60 {
		t.Errorf("Unexpected score fields: %+v", result)
	}
	if !result.NeedsManualReview {
		t.Error("Expected manual review flag to carry over")
	}
	if result.SubmittedAt == nil || !result.SubmittedAt.Equal(submitted) {
		t.Errorf("Unexpected submitted time: %v", result.SubmittedAt)
	}
}
