package usecases

import (
	"errors"
	"strings"
)

// Question length bounds, applied after trimming.
const (
	minQuestionLen = 3
	maxQuestionLen = 1000
)

// ValidateQuestion checks question format before any retrieval work happens,
// so malformed input never costs a provider call.
func ValidateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)

	if trimmed == "" {
		return errors.New("Please enter a question")
	}
	if len([]rune(trimmed)) < minQuestionLen {
		return errors.New("Question is too short. Please provide more details.")
	}
	if len([]rune(trimmed)) > maxQuestionLen {
		return errors.New("Question is too long. Please keep it under 1000 characters.")
	}
	return nil
}
