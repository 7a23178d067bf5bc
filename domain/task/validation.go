package task

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	TitleMinLength       = 3
	TitleMaxLength       = 100
	DescriptionMaxLength = 1000
)

// ValidateTitle checks the title length bounds, counted in characters.
func ValidateTitle(v *ValidationError, title string) {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if strings.TrimSpace(title) == "" {
		v.Add("title", "Title is required")
		return
	}
	if n < TitleMinLength || utf8.RuneCountInString(title) > TitleMaxLength {
		v.Add("title", fmt.Sprintf("Title must be between %d and %d characters", TitleMinLength, TitleMaxLength))
	}
}

// ValidateDescription checks the description upper bound.
func ValidateDescription(v *ValidationError, description string) {
	if utf8.RuneCountInString(description) > DescriptionMaxLength {
		v.Add("description", fmt.Sprintf("Description cannot exceed %d characters", DescriptionMaxLength))
	}
}

// ValidateStatus parses raw into a Status, recording a violation on failure.
func ValidateStatus(v *ValidationError, raw string) (Status, bool) {
	s, err := ParseStatus(raw)
	if err != nil {
		v.Add("status", "Invalid task status. Allowed values are: TODO, IN_PROGRESS, DONE")
		return "", false
	}
	return s, true
}

// ValidatePriority parses raw into a Priority, recording a violation on failure.
func ValidatePriority(v *ValidationError, raw string) (Priority, bool) {
	p, err := ParsePriority(raw)
	if err != nil {
		v.Add("priority", "Invalid task priority. Allowed values are: LOW, MED, HIGH")
		return "", false
	}
	return p, true
}
