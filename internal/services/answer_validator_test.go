package services

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

func openAttempt(now time.Time) *models.Attempt {
	expires := now.Add(30 * time.Minute)
	return &models.Attempt{
		ID:            1,
		AssignmentID:  1,
		AttemptNumber: 1,
		StartedAt:     now.Add(-10 * time.Minute),
		ExpiresAt:     &expires,
	}
}

func TestAnswerValidator_Validate(t *testing.T) {
	v := NewAnswerValidator()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	snapshot := mixedSnapshot()

	fullAnswers := []AnswerSubmission{
		{QuestionID: 10, OptionID: optionID(102)},
		{QuestionID: 20, OptionID: optionID(201)},
	}

	t.Run("ClosedAttempt_ChecksFirst", func(t *testing.T) {
		submitted := now.Add(-time.Minute)
		attempt := openAttempt(now)
		attempt.SubmittedAt = &submitted

		// Even a submission full of other problems reports closure first.
		_, err := v.Validate(attempt, snapshot, []AnswerSubmission{{QuestionID: 999}}, now, false)
		if !errors.Is(err, ErrAttemptClosed) {
			t.Fatalf("Expected ErrAttemptClosed, got %v", err)
		}
	})

	t.Run("ExpiredAttempt", func(t *testing.T) {
		attempt := openAttempt(now)
		late := now.Add(time.Hour)

		_, err := v.Validate(attempt, snapshot, fullAnswers, late, false)
		if !errors.Is(err, ErrAttemptClosed) {
			t.Fatalf("Expected ErrAttemptClosed, got %v", err)
		}
	})

	t.Run("MissingRequired", func(t *testing.T) {
		_, err := v.Validate(openAttempt(now), snapshot, []AnswerSubmission{
			{QuestionID: 10, OptionID: optionID(102)},
		}, now, false)

		var submissionErr *SubmissionError
		if !errors.As(err, &submissionErr) {
			t.Fatalf("Expected SubmissionError, got %v", err)
		}
		if submissionErr.Reason != ReasonMissingRequiredAnswers {
			t.Errorf("Expected reason %s, got %s", ReasonMissingRequiredAnswers, submissionErr.Reason)
		}
		if len(submissionErr.QuestionIDs) != 1 || submissionErr.QuestionIDs[0] != 20 {
			t.Errorf("Expected missing question id 20, got %v", submissionErr.QuestionIDs)
		}
	})

	t.Run("MissingRequired_SkippedForExpiryGrading", func(t *testing.T) {
		normalized, err := v.Validate(openAttempt(now), snapshot, []AnswerSubmission{
			{QuestionID: 10, OptionID: optionID(102)},
		}, now, true)
		if err != nil {
			t.Fatalf("Expected success with skipRequired, got %v", err)
		}
		if len(normalized) != 3 {
			t.Fatalf("Expected 3 normalized entries, got %d", len(normalized))
		}
	})

	t.Run("UnknownQuestion", func(t *testing.T) {
		_, err := v.Validate(openAttempt(now), snapshot, append(fullAnswers,
			AnswerSubmission{QuestionID: 999, OptionID: optionID(1)}), now, false)

		var submissionErr *SubmissionError
		if !errors.As(err, &submissionErr) {
			t.Fatalf("Expected SubmissionError, got %v", err)
		}
		if submissionErr.Reason != ReasonInvalidReference {
			t.Errorf("Expected reason %s, got %s", ReasonInvalidReference, submissionErr.Reason)
		}
	})

	t.Run("OptionFromAnotherQuestion", func(t *testing.T) {
		_, err := v.Validate(openAttempt(now), snapshot, []AnswerSubmission{
			{QuestionID: 10, OptionID: optionID(201)},
			{QuestionID: 20, OptionID: optionID(201)},
		}, now, false)

		var submissionErr *SubmissionError
		if !errors.As(err, &submissionErr) {
			t.Fatalf("Expected SubmissionError, got %v", err)
		}
		if submissionErr.Reason != ReasonInvalidReference {
			t.Errorf("Expected reason %s, got %s", ReasonInvalidReference, submissionErr.Reason)
		}
	})

	t.Run("TextOnChoiceQuestion", func(t *testing.T) {
		_, err := v.Validate(openAttempt(now), snapshot, []AnswerSubmission{
			{QuestionID: 10, OptionID: optionID(102), Text: textAnswer("also this")},
			{QuestionID: 20, OptionID: optionID(201)},
		}, now, false)

		var submissionErr *SubmissionError
		if !errors.As(err, &submissionErr) {
			t.Fatalf("Expected SubmissionError, got %v", err)
		}
		if submissionErr.Reason != ReasonTypeMismatch {
			t.Errorf("Expected reason %s, got %s", ReasonTypeMismatch, submissionErr.Reason)
		}
	})

	t.Run("OptionOnOpenQuestion", func(t *testing.T) {
		// An open question owns no options, so any option id fails the
		// reference check before the shape check is reached.
		_, err := v.Validate(openAttempt(now), snapshot, append(fullAnswers,
			AnswerSubmission{QuestionID: 30, OptionID: optionID(102)}), now, false)

		var submissionErr *SubmissionError
		if !errors.As(err, &submissionErr) {
			t.Fatalf("Expected SubmissionError, got %v", err)
		}
		if submissionErr.Reason != ReasonInvalidReference {
			t.Errorf("Expected reason %s, got %s", ReasonInvalidReference, submissionErr.Reason)
		}
	})

	t.Run("Normalize_OneEntryPerQuestion", func(t *testing.T) {
		normalized, err := v.Validate(openAttempt(now), snapshot, append(fullAnswers,
			AnswerSubmission{QuestionID: 30, Text: textAnswer("  congestion control  ")}), now, false)
		if err != nil {
			t.Fatalf("Expected success, got %v", err)
		}

		if len(normalized) != len(snapshot.Questions) {
			t.Fatalf("Expected %d entries, got %d", len(snapshot.Questions), len(normalized))
		}

		byQuestion := make(map[uint]NormalizedAnswer)
		for _, entry := range normalized {
			byQuestion[entry.QuestionID] = entry
		}

		if entry := byQuestion[30]; !entry.Answered || entry.Text == nil || *entry.Text != "congestion control" {
			t.Errorf("Expected trimmed open-text answer, got %+v", entry)
		}
		if entry := byQuestion[10]; !entry.Answered || entry.OptionID == nil || *entry.OptionID != 102 {
			t.Errorf("Expected normalized choice answer, got %+v", entry)
		}
	})

	t.Run("BlankText_CountsAsUnanswered", func(t *testing.T) {
		normalized, err := v.Validate(openAttempt(now), snapshot, append(fullAnswers,
			AnswerSubmission{QuestionID: 30, Text: textAnswer("   ")}), now, false)
		if err != nil {
			t.Fatalf("Expected success, got %v", err)
		}

		for _, entry := range normalized {
			if entry.QuestionID == 30 && entry.Answered {
				t.Error("Whitespace-only text must normalize as unanswered")
			}
		}
	})
}
