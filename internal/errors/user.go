package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice keeps errors.Is() traversal in declaration order.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Issues & solutions
	// ===================
	{
		err: ErrIssueNotFound,
		info: ErrorInfo{
			Message: "The issue was not found in the active set.",
			Action:  "Run 'issueflow issue list' to see active issues, or 'issueflow issue history' for completed ones.",
		},
	},
	{
		err: ErrIssueExists,
		info: ErrorInfo{
			Message: "An issue with this id already exists.",
			Action:  "Pick a different --id or omit it to generate one.",
		},
	},
	{
		err: ErrInvalidIssueStatus,
		info: ErrorInfo{
			Message: "Unknown issue status.",
			Action:  "Use one of: registered, planning, planned, queued, executing, completed, failed.",
		},
	},
	{
		err: ErrNoBoundSolution,
		info: ErrorInfo{
			Message: "The issue has no bound solution.",
			Action:  "Bind one with 'issueflow solution bind <issue> <solution-id>'.",
		},
	},
	{
		err: ErrSolutionNotFound,
		info: ErrorInfo{
			Message: "The solution was not found for this issue.",
			Action:  "Run 'issueflow solution list <issue>' to see candidates.",
		},
	},

	// ===================
	// Queues
	// ===================
	{
		err: ErrQueueNotFound,
		info: ErrorInfo{
			Message: "The queue was not found.",
			Action:  "Run 'issueflow queue list' to see existing queues.",
		},
	},
	{
		err: ErrNoActiveQueue,
		info: ErrorInfo{
			Message: "There is no active queue.",
			Action:  "Queue an issue with 'issueflow queue add <issue>' or pass a queue id.",
		},
	},
	{
		err: ErrQueueItemNotFound,
		info: ErrorInfo{
			Message: "The queue item was not found.",
			Action:  "Run 'issueflow queue show' to see item ids.",
		},
	},
	{
		err: ErrAmbiguousItem,
		info: ErrorInfo{
			Message: "The item id exists in more than one queue.",
			Action:  "Pass --queue to select the queue explicitly.",
		},
	},
	{
		err: ErrNoFailedItems,
		info: ErrorInfo{
			Message: "No failed items were found for this issue.",
		},
	},
	{
		err: ErrUnknownDependency,
		info: ErrorInfo{
			Message: "A declared dependency does not name an item in the queue.",
			Action:  "Check --depends-on against 'issueflow queue show'.",
		},
	},
	{
		err: ErrDependencyCycle,
		info: ErrorInfo{
			Message: "Queue item dependencies form a cycle.",
			Action:  "Remove one of the dependencies in the reported path.",
		},
	},
	{
		err: ErrInvalidResultPayload,
		info: ErrorInfo{
			Message: "The result payload is not valid JSON.",
			Action:  "Pass --result as a JSON document.",
		},
	},

	// ===================
	// Storage & locking
	// ===================
	{
		err: ErrRecordCorrupted,
		info: ErrorInfo{
			Message: "A stored record could not be read.",
			Action:  "Inspect the file reported above; a .bak copy of the previous version may exist next to it.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Another issueflow process is holding the lock.",
			Action:  "Wait for it to finish, or raise store.lock_timeout.",
		},
	},

	// ===================
	// CLI
	// ===================
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrNonInteractiveMode,
		info: ErrorInfo{
			Message: "Confirmation is required but no terminal is attached.",
			Action:  "Re-run with --force.",
		},
	},
	{
		err: ErrOperationCanceled,
		info: ErrorInfo{
			Message: "Operation canceled.",
		},
	},
}

//nolint:gochecknoglobals // Built once from errorInfoEntries
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error, trying a direct
// map hit first and falling back to errors.Is() for wrapped errors.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing obvious to do.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
