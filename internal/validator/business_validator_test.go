package validator

import (
	"errors"
	"testing"
)

type distributeForm struct {
	EvaluationID uint   `validate:"required"`
	Mode         string `validate:"required,distribution_mode"`
	MaxAttempts  int    `validate:"omitempty,max_attempts"`
}

func TestValidator_DistributionMode(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		form    distributeForm
		wantErr bool
	}{
		{"ExplicitList", distributeForm{EvaluationID: 1, Mode: "EXPLICIT_LIST"}, false},
		{"MainProgram", distributeForm{EvaluationID: 1, Mode: "MAIN_PROGRAM"}, false},
		{"AnyAssociatedProgram", distributeForm{EvaluationID: 1, Mode: "ANY_ASSOCIATED_PROGRAM"}, false},
		{"UnknownMode", distributeForm{EvaluationID: 1, Mode: "EVERYONE"}, true},
		{"MissingMode", distributeForm{EvaluationID: 1}, true},
		{"MissingEvaluation", distributeForm{Mode: "EXPLICIT_LIST"}, true},
		{"AttemptsTooHigh", distributeForm{EvaluationID: 1, Mode: "EXPLICIT_LIST", MaxAttempts: 11}, true},
		{"AttemptsInRange", distributeForm{EvaluationID: 1, Mode: "EXPLICIT_LIST", MaxAttempts: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.form, err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ErrorDetails(t *testing.T) {
	v := New()

	err := v.Validate(distributeForm{Mode: "EVERYONE"})
	if err == nil {
		t.Fatal("Expected validation failure")
	}

	var validationErrors ValidationErrors
	if !errors.As(err, &validationErrors) {
		t.Fatalf("Expected ValidationErrors, got %T", err)
	}

	if len(validationErrors) != 2 {
		t.Fatalf("Expected 2 field errors, got %d: %v", len(validationErrors), validationErrors)
	}

	fields := make(map[string]string)
	for _, fe := range validationErrors {
		fields[fe.Field] = fe.Rule
	}
	if fields["evaluation_id"] != "required" {
		t.Errorf("Expected evaluation_id to fail the required rule, got %v", fields)
	}
	if fields["mode"] != "distribution_mode" {
		t.Errorf("Expected mode to fail the distribution_mode rule, got %v", fields)
	}
}
