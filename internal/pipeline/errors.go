package pipeline

import "strings"

// ValidationError lists the pre-flight problems that stop a run before any
// output is written.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Messages, "; ")
}
