package services

import (
	"log/slog"
	"os"
	"testing"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

func newTestGradingService() GradingService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewGradingService(logger)
}

func optionID(id uint) *uint { return &id }

func textAnswer(s string) *string { return &s }

// mixedSnapshot: two choice questions worth 2 and 3 points plus one open
// question worth 4. Auto-gradable max is 5.
func mixedSnapshot() *models.EvaluationSnapshot {
	return &models.EvaluationSnapshot{
		EvaluationID: 1,
		Title:        "Networks Midterm",
		Questions: []models.QuestionSnapshot{
			{
				ID: 10, Statement: "Which layer routes packets?", Type: models.QuestionSingleChoice, Required: true, Points: 2,
				Options: []models.OptionSnapshot{
					{ID: 101, Text: "Transport"},
					{ID: 102, Text: "Network", IsCorrect: true},
					{ID: 103, Text: "Link"},
				},
			},
			{
				ID: 20, Statement: "TCP guarantees ordering", Type: models.QuestionTrueFalse, Required: true, Points: 3,
				Options: []models.OptionSnapshot{
					{ID: 201, Text: "True", IsCorrect: true},
					{ID: 202, Text: "False"},
				},
			},
			{
				ID: 30, Statement: "Explain congestion control", Type: models.QuestionOpenText, Required: false, Points: 4,
			},
		},
	}
}

func TestGradingService_Grade(t *testing.T) {
	service := newTestGradingService()

	t.Run("PartialScore_WithOpenText", func(t *testing.T) {
		// One wrong choice (0/2), one right (3/3), one answered open text.
		answers := []NormalizedAnswer{
			{QuestionID: 10, Answered: true, OptionID: optionID(101)},
			{QuestionID: 20, Answered: true, OptionID: optionID(201)},
			{QuestionID: 30, Answered: true, Text: textAnswer("slow start and AIMD")},
		}

		outcome := service.Grade(mixedSnapshot(), answers)

		if outcome.Score != 3 {
			t.Errorf("Expected score 3, got %v", outcome.Score)
		}
		if outcome.MaxScore != 5 {
			t.Errorf("Expected max score 5, got %v", outcome.MaxScore)
		}
		if outcome.Percentage != 60 {
			t.Errorf("Expected percentage 60, got %v", outcome.Percentage)
		}
		if !outcome.NeedsManualReview {
			t.Error("Expected manual review flag for answered open text")
		}
	})

	t.Run("AllCorrect", func(t *testing.T) {
		answers := []NormalizedAnswer{
			{QuestionID: 10, Answered: true, OptionID: optionID(102)},
			{QuestionID: 20, Answered: true, OptionID: optionID(201)},
		}

		outcome := service.Grade(mixedSnapshot(), answers)

		if outcome.Score != 5 {
			t.Errorf("Expected score 5, got %v", outcome.Score)
		}
		if outcome.Percentage != 100 {
			t.Errorf("Expected percentage 100, got %v", outcome.Percentage)
		}
		if outcome.NeedsManualReview {
			t.Error("Unanswered open text must not request manual review")
		}
	})

	t.Run("AllOpenText_ZeroNotHundred", func(t *testing.T) {
		snapshot := &models.EvaluationSnapshot{
			EvaluationID: 2,
			Questions: []models.QuestionSnapshot{
				{ID: 1, Type: models.QuestionOpenText, Points: 5},
				{ID: 2, Type: models.QuestionOpenText, Points: 5},
			},
		}
		answers := []NormalizedAnswer{
			{QuestionID: 1, Answered: true, Text: textAnswer("essay one")},
			{QuestionID: 2, Answered: true, Text: textAnswer("essay two")},
		}

		outcome := service.Grade(snapshot, answers)

		if outcome.Score != 0 {
			t.Errorf("Expected score 0, got %v", outcome.Score)
		}
		if outcome.MaxScore != 0 {
			t.Errorf("Expected max score 0, got %v", outcome.MaxScore)
		}
		if outcome.Percentage != 0 {
			t.Errorf("All-open evaluation must report 0 percent, got %v", outcome.Percentage)
		}
		if !outcome.NeedsManualReview {
			t.Error("Expected manual review flag")
		}
	})

	t.Run("UnansweredChoice_ScoresZero", func(t *testing.T) {
		answers := []NormalizedAnswer{
			{QuestionID: 10},
			{QuestionID: 20, Answered: true, OptionID: optionID(201)},
			{QuestionID: 30},
		}

		outcome := service.Grade(mixedSnapshot(), answers)

		if outcome.Score != 3 {
			t.Errorf("Expected score 3, got %v", outcome.Score)
		}

		var first *QuestionGrade
		for i := range outcome.Questions {
			if outcome.Questions[i].QuestionID == 10 {
				first = &outcome.Questions[i]
			}
		}
		if first == nil || first.IsCorrect == nil || *first.IsCorrect {
			t.Error("Unanswered choice question must grade as incorrect")
		}
		if outcome.NeedsManualReview {
			t.Error("Blank open text must not request manual review")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		answers := []NormalizedAnswer{
			{QuestionID: 10, Answered: true, OptionID: optionID(102)},
			{QuestionID: 20, Answered: true, OptionID: optionID(202)},
			{QuestionID: 30, Answered: true, Text: textAnswer("notes")},
		}

		first := service.Grade(mixedSnapshot(), answers)
		for i := 0; i < 10; i++ {
			again := service.Grade(mixedSnapshot(), answers)
			if again.Score != first.Score || again.Percentage != first.Percentage ||
				again.NeedsManualReview != first.NeedsManualReview {
				t.Fatalf("Grading is not deterministic: %+v vs %+v", first, again)
			}
		}
	})

	t.Run("EmptySubmission", func(t *testing.T) {
		outcome := service.Grade(mixedSnapshot(), nil)

		if outcome.Score != 0 {
			t.Errorf("Expected score 0, got %v", outcome.Score)
		}
		if outcome.MaxScore != 5 {
			t.Errorf("Expected max score 5, got %v", outcome.MaxScore)
		}
		if len(outcome.Questions) != 3 {
			t.Errorf("Expected a grade entry per question, got %d", len(outcome.Questions))
		}
	})
}
