package services

import (
	"strings"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// AnswerValidator checks a raw submission against the attempt's frozen
// snapshot and produces the normalized answer set the grading engine
// consumes. Shape rules are enforced here once; downstream code trusts the
// normalized form.
type AnswerValidator struct{}

func NewAnswerValidator() *AnswerValidator {
	return &AnswerValidator{}
}

// Validate runs the checks in order: attempt open, required coverage,
// reference integrity, per-type shape. skipRequired marks an
// expiry-triggered close, which grades whatever exists: both the openness
// check and the coverage check are relaxed, since the attempt being graded
// is already past its deadline by definition.
func (v *AnswerValidator) Validate(attempt *models.Attempt, snapshot *models.EvaluationSnapshot, submitted []AnswerSubmission, now time.Time, skipRequired bool) ([]NormalizedAnswer, error) {
	if !skipRequired && !attempt.IsOpen(now) {
		return nil, ErrAttemptClosed
	}

	byQuestion := make(map[uint]*AnswerSubmission, len(submitted))
	for i := range submitted {
		byQuestion[submitted[i].QuestionID] = &submitted[i]
	}

	if !skipRequired {
		if missing := v.missingRequired(snapshot, byQuestion); len(missing) > 0 {
			return nil, NewSubmissionError(ReasonMissingRequiredAnswers,
				"required questions are unanswered", missing...)
		}
	}

	for i := range submitted {
		answer := &submitted[i]
		question := snapshot.Question(answer.QuestionID)
		if question == nil {
			return nil, NewSubmissionError(ReasonInvalidReference,
				"answer references a question outside this evaluation", answer.QuestionID)
		}
		if answer.OptionID != nil && question.Option(*answer.OptionID) == nil {
			return nil, NewSubmissionError(ReasonInvalidReference,
				"answer references an option outside its question", answer.QuestionID)
		}
		if err := v.checkShape(question, answer); err != nil {
			return nil, err
		}
	}

	return v.normalize(snapshot, byQuestion), nil
}

func (v *AnswerValidator) missingRequired(snapshot *models.EvaluationSnapshot, byQuestion map[uint]*AnswerSubmission) []uint {
	var missing []uint
	for i := range snapshot.Questions {
		question := &snapshot.Questions[i]
		if !question.Required {
			continue
		}
		answer, ok := byQuestion[question.ID]
		if !ok || !hasContent(question.Type, answer) {
			missing = append(missing, question.ID)
		}
	}
	return missing
}

func (v *AnswerValidator) checkShape(question *models.QuestionSnapshot, answer *AnswerSubmission) error {
	switch {
	case question.Type.IsAutoGradable():
		if answer.Text != nil && strings.TrimSpace(*answer.Text) != "" {
			return NewSubmissionError(ReasonTypeMismatch,
				"choice question cannot carry free text", question.ID)
		}
		// An empty choice answer is allowed for optional questions; a
		// populated one must carry exactly the option reference.
	default:
		if answer.OptionID != nil {
			return NewSubmissionError(ReasonTypeMismatch,
				"open question cannot carry an option reference", question.ID)
		}
	}
	return nil
}

// normalize emits exactly one entry per snapshot question; unanswered
// optional questions appear as empty entries.
func (v *AnswerValidator) normalize(snapshot *models.EvaluationSnapshot, byQuestion map[uint]*AnswerSubmission) []NormalizedAnswer {
	normalized := make([]NormalizedAnswer, 0, len(snapshot.Questions))
	for i := range snapshot.Questions {
		question := &snapshot.Questions[i]
		entry := NormalizedAnswer{QuestionID: question.ID}

		if answer, ok := byQuestion[question.ID]; ok && hasContent(question.Type, answer) {
			entry.Answered = true
			if question.Type.IsAutoGradable() {
				entry.OptionID = answer.OptionID
			} else {
				trimmed := strings.TrimSpace(*answer.Text)
				entry.Text = &trimmed
			}
		}

		normalized = append(normalized, entry)
	}
	return normalized
}

func hasContent(questionType models.QuestionType, answer *AnswerSubmission) bool {
	if questionType.IsAutoGradable() {
		return answer.OptionID != nil
	}
	return answer.Text != nil && strings.TrimSpace(*answer.Text) != ""
}
