package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/issueflow/internal/config"
	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/logging"
)

//nolint:gochecknoglobals // Process-wide logging state owned by the CLI
var (
	// activeLogFile is the rotating log file of the current run, if any.
	activeLogFile io.WriteCloser

	fieldNamesOnce sync.Once
	// stdLogMu guards log.Logger. It is separate from globalLoggerMu.
	stdLogMu sync.Mutex
)

// setFieldNames renames zerolog's timestamp and message fields for every
// logger in the process.
func setFieldNames() {
	fieldNamesOnce.Do(func() {
		zerolog.TimestampFieldName = "ts"
		zerolog.MessageFieldName = "event"
	})
}

// InitLogger builds the CLI logger.
//
// Levels: verbose selects debug, quiet selects warn, otherwise info.
// Entries go to stderr (pretty on a color terminal, JSON lines otherwise)
// and to <home>/logs/issueflow.log, rotated per rotation with secrets
// redacted. A log file that cannot be opened leaves stderr as the only sink.
func InitLogger(verbose, quiet bool, rotation config.LogConfig) zerolog.Logger {
	var sink io.Writer = consoleWriter()

	file, err := openLogFile(rotation)
	if err == nil {
		CloseLogFile()
		activeLogFile = file
		sink = zerolog.MultiLevelWriter(sink, file)
	}

	logger := newLogger(verbose, quiet, sink)
	if err != nil {
		logger.Debug().Err(err).Msg("log file disabled")
	}
	return logger
}

// InitLoggerWithWriter builds the CLI logger on w alone. Tests use it to
// capture entries.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	return newLogger(verbose, quiet, w)
}

func newLogger(verbose, quiet bool, w io.Writer) zerolog.Logger {
	setFieldNames()
	logger := zerolog.New(w).
		Level(levelFor(verbose, quiet)).
		Hook(logging.NewSensitiveDataHook()).
		With().Timestamp().Logger()

	stdLogMu.Lock()
	log.Logger = logger
	stdLogMu.Unlock()
	return logger
}

// CloseLogFile flushes and closes the log file of the current run.
func CloseLogFile() {
	if activeLogFile == nil {
		return
	}
	_ = activeLogFile.Close()
	activeLogFile = nil
}

func levelFor(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// consoleWriter pretty-prints on a color terminal and emits JSON lines
// everywhere else, so executors piping stderr get parseable entries.
func consoleWriter() io.Writer {
	if !term.IsTerminal(int(os.Stderr.Fd())) || os.Getenv("NO_COLOR") != "" {
		return os.Stderr
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
}

// redactingFile scrubs secrets from each entry before it reaches the file.
type redactingFile struct {
	*logging.FilteringWriter

	file io.Closer
}

func (r *redactingFile) Close() error {
	return r.file.Close()
}

// openLogFile opens the rotating CLI log file.
func openLogFile(rotation config.LogConfig) (io.WriteCloser, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}
	return &redactingFile{FilteringWriter: logging.NewFilteringWriter(rotating), file: rotating}, nil
}

// LogFilePath returns where the CLI log lives. ISSUEFLOW_HOME moves it
// together with the global config.
func LogFilePath() (string, error) {
	home, err := config.GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.LogsDir, constants.CLILogFileName), nil
}
