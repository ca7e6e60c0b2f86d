// Package constants provides centralized constant values used throughout issueflow.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by issueflow for organizing data.
const (
	// FlowHome is the hidden directory name where issueflow stores its data,
	// both under the user's home (global config, logs) and under a project root
	// (the record store).
	FlowHome = ".issueflow"

	// IssuesDir holds the active issue log, the history log and solution families.
	IssuesDir = "issues"

	// SolutionsDir holds one solution family file per issue, under IssuesDir.
	SolutionsDir = "solutions"

	// QueuesDir holds one JSON record per queue.
	QueuesDir = "queues"

	// LocksDir holds the lock files used to serialize writers.
	LocksDir = "locks"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// File names used by the record store.
const (
	// IssuesFileName is the JSONL log of active issues.
	IssuesFileName = "issues.jsonl"

	// IssueHistoryFileName is the append-only JSONL archive of completed issues.
	IssueHistoryFileName = "issue-history.jsonl"

	// SQLiteFileName is the database file used by the sqlite backend.
	SQLiteFileName = "issueflow.db"

	// BackupSuffix is appended to the previous version of a rewritten file.
	BackupSuffix = ".bak"
)

// Locking configuration.
const (
	// LockTimeout is the default maximum time to wait for a lock.
	LockTimeout = 5 * time.Second

	// LockRetryInterval is how often a contended file lock is retried.
	LockRetryInterval = 50 * time.Millisecond
)

// Identifier prefixes and formats.
const (
	// IssueIDPrefix prefixes generated issue ids.
	IssueIDPrefix = "ISS-"

	// SolutionIDPrefix prefixes solution ids, followed by the issue id and a sequence.
	SolutionIDPrefix = "SOL-"

	// QueueIDPrefix prefixes queue ids, followed by a 14-digit timestamp.
	QueueIDPrefix = "QUE-"

	// ItemIDPrefix prefixes queue item ids, followed by a sequence number.
	ItemIDPrefix = "S-"

	// IDTimestampLayout renders the 14-digit timestamps used in generated ids.
	IDTimestampLayout = "20060102150405"
)

// Queue and issue defaults.
const (
	// DefaultIssuePriority is assigned when an issue is created without one.
	DefaultIssuePriority = 3

	// MinIssuePriority is the highest urgency an issue can carry.
	MinIssuePriority = 1

	// MaxIssuePriority is the lowest urgency an issue can carry.
	MaxIssuePriority = 5

	// DefaultIssueType is assigned when an issue is created without a type.
	DefaultIssueType = "task"

	// DefaultExecutionGroup is the batch label given to new queue items.
	DefaultExecutionGroup = "P1"

	// DefaultSemanticPriority is the tie-breaker weight given to new queue items.
	DefaultSemanticPriority = 0.5

	// DefaultFailureErrorType is recorded when a failure report names no error type.
	DefaultFailureErrorType = "execution_failed"

	// MaxParallelReads bounds concurrent record file reads.
	MaxParallelReads = 8
)
