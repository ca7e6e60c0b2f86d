// Package errors provides centralized error handling for issueflow.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrIssueNotFound indicates the requested issue is not in the active set.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrIssueExists indicates an attempt to create an issue whose id is taken.
	ErrIssueExists = errors.New("issue already exists")

	// ErrInvalidIssueStatus indicates a status value outside the recognized set.
	ErrInvalidIssueStatus = errors.New("invalid issue status")

	// ErrNoBoundSolution indicates an operation that needs a bound solution
	// was attempted on an issue that has none.
	ErrNoBoundSolution = errors.New("issue has no bound solution")

	// ErrSolutionNotFound indicates the named solution does not exist for the issue.
	ErrSolutionNotFound = errors.New("solution not found")

	// ErrQueueNotFound indicates the requested queue does not exist.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrNoActiveQueue indicates that no queue with status active exists.
	ErrNoActiveQueue = errors.New("no active queue")

	// ErrQueueItemNotFound indicates the requested item is in no searched queue.
	ErrQueueItemNotFound = errors.New("queue item not found")

	// ErrAmbiguousItem indicates an item id matched items in more than one queue.
	ErrAmbiguousItem = errors.New("queue item id is ambiguous")

	// ErrNoFailedItems indicates retry found no failed item for the issue.
	ErrNoFailedItems = errors.New("no failed items for issue")

	// ErrUnknownDependency indicates depends_on names an item missing from the queue.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrDependencyCycle indicates the queue items' dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrInvalidResultPayload indicates a done report carried a result that is not valid JSON.
	ErrInvalidResultPayload = errors.New("invalid result payload")

	// ErrInvalidTransition indicates an invalid state transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrRecordCorrupted indicates a stored record could not be decoded.
	ErrRecordCorrupted = errors.New("record corrupted")

	// ErrLockTimeout indicates a file lock could not be acquired within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidStore indicates an invalid store configuration value.
	ErrConfigInvalidStore = errors.New("invalid store configuration")

	// ErrConfigInvalidQueue indicates an invalid queue configuration value.
	ErrConfigInvalidQueue = errors.New("invalid queue configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidArgument indicates that an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNonInteractiveMode indicates that an operation requiring confirmation
	// was attempted in non-interactive mode without the force flag.
	ErrNonInteractiveMode = errors.New("use --force in non-interactive mode")

	// ErrOperationCanceled indicates the user canceled an operation.
	ErrOperationCanceled = errors.New("operation canceled by user")

	// ErrJSONErrorOutput indicates that an error has already been output as JSON.
	// This ensures a non-zero exit code while preventing duplicate error messages.
	// Commands should silence cobra's error printing when this is returned.
	ErrJSONErrorOutput = errors.New("error output as JSON")

	// ErrInterrupted is the cancellation cause when SIGINT or SIGTERM arrives.
	ErrInterrupted = errors.New("interrupted by signal")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
