package tui

// ActionableError is a command failure as the user sees it: what went wrong,
// what it means, and what to run next.
//
//	err := NewActionableError("no active queue", "issueflow queue add <issue-id>").
//		WithHint("There is no active queue.")
//	output.Error(err)
//	// ✗ no active queue
//	//   There is no active queue.
//	//   ▸ Try: issueflow queue add <issue-id>
type ActionableError struct {
	Message string

	// Hint explains Message in plain words. It is omitted when it only
	// repeats Message.
	Hint string

	// Suggestion starts with a verb or an issueflow command.
	Suggestion string

	cause error
}

// NewActionableError returns an ActionableError with a message and a next step.
func NewActionableError(msg, suggestion string) *ActionableError {
	return &ActionableError{Message: msg, Suggestion: suggestion}
}

func (e *ActionableError) Error() string {
	return e.Message
}

// WithHint sets the plain-words explanation.
func (e *ActionableError) WithHint(hint string) *ActionableError {
	if hint != e.Message {
		e.Hint = hint
	}
	return e
}

// Wrap keeps cause reachable through errors.Is and errors.As.
func (e *ActionableError) Wrap(cause error) *ActionableError {
	e.cause = cause
	return e
}

func (e *ActionableError) Unwrap() error {
	return e.cause
}
