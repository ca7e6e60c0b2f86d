package constants

// Log file names.
const (
	// CLILogFileName is the name of the CLI log file, under ~/.issueflow/logs.
	CLILogFileName = "issueflow.log"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global configuration file, located
	// in ~/.issueflow.
	GlobalConfigName = "config.yaml"

	// ProjectConfigName is the name of the project configuration file, located
	// in the project's .issueflow directory.
	ProjectConfigName = "config.yaml"
)

// Store backends.
const (
	// StoreBackendFile keeps records as JSON and JSONL files.
	StoreBackendFile = "file"

	// StoreBackendSQLite keeps records in a single sqlite database.
	StoreBackendSQLite = "sqlite"
)

// Queue failure policies.
const (
	// FailurePolicyQueue marks the whole queue failed when one item fails.
	FailurePolicyQueue = "queue"

	// FailurePolicyItem leaves the queue active and only blocks the failed item.
	FailurePolicyItem = "item"
)
