package services

import (
	"log/slog"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

// Grade scores a normalized answer set against the frozen snapshot. It is a
// pure function of its inputs: no clock, no randomness, no storage access.
// Choice and true-false questions score their full point value when the
// selected option carries the correct flag; open-text questions contribute
// zero and mark the outcome for manual review. The percentage is taken over
// the auto-gradable maximum only, so an all-open evaluation reports 0 rather
// than a misleading 100%.
func (s *gradingService) Grade(snapshot *models.EvaluationSnapshot, answers []NormalizedAnswer) GradeOutcome {
	byQuestion := make(map[uint]*NormalizedAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	outcome := GradeOutcome{
		MaxScore:  snapshot.AutoGradableMax(),
		Questions: make([]QuestionGrade, 0, len(snapshot.Questions)),
	}

	for i := range snapshot.Questions {
		question := &snapshot.Questions[i]
		answer := byQuestion[question.ID]
		outcome.Questions = append(outcome.Questions, s.gradeQuestion(question, answer))
	}

	for _, qg := range outcome.Questions {
		outcome.Score += qg.PointsAwarded
		if qg.NeedsReview {
			outcome.NeedsManualReview = true
		}
	}

	if outcome.MaxScore > 0 {
		outcome.Percentage = outcome.Score / outcome.MaxScore * 100
	}

	return outcome
}

func (s *gradingService) gradeQuestion(question *models.QuestionSnapshot, answer *NormalizedAnswer) QuestionGrade {
	grade := QuestionGrade{QuestionID: question.ID}

	if !question.Type.IsAutoGradable() {
		// Open text: stored for human grading, never auto-scored. An
		// answered question joins the review queue; a blank one does not.
		grade.NeedsReview = answer != nil && answer.Answered
		return grade
	}

	if answer == nil || !answer.Answered || answer.OptionID == nil {
		correct := false
		grade.IsCorrect = &correct
		return grade
	}

	selected := question.Option(*answer.OptionID)
	correct := selected != nil && selected.IsCorrect
	grade.IsCorrect = &correct
	if correct {
		grade.PointsAwarded = question.Points
	}

	return grade
}
