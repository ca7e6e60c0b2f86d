package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrz1836/issueflow/internal/constants"
)

// readJSONL decodes one record per line. Blank lines are ignored; lines that
// fail to decode or that keep rejects are skipped with a warning. A missing
// file yields an empty slice.
func readJSONL[T any](ctx context.Context, path string, keep func(T) bool) ([]T, error) {
	records, _, err := scanJSONL(ctx, path, keep)
	return records, err
}

// scanJSONL is readJSONL that also returns the raw lines it skipped, so a
// rewrite can carry them forward instead of dropping them.
func scanJSONL[T any](ctx context.Context, path string, keep func(T) bool) ([]T, [][]byte, error) {
	f, err := os.Open(path) //#nosec G304 -- path is constructed internally
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	logger := zerolog.Ctx(ctx)
	records := make([]T, 0)
	var rejected [][]byte
	reader := bufio.NewReader(f)
	lineNo := 0

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				var rec T
				if err := json.Unmarshal(line, &rec); err != nil {
					logger.Warn().Err(err).
						Str("file", path).
						Int("line", lineNo).
						Msg("skipping malformed record")
					rejected = append(rejected, line)
				} else if keep != nil && !keep(rec) {
					logger.Warn().
						Str("file", path).
						Int("line", lineNo).
						Msg("skipping incomplete record")
					rejected = append(rejected, line)
				} else {
					records = append(records, rec)
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return records, rejected, nil
			}
			return nil, nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), readErr)
		}
	}
}

// writeJSONL rewrites path with one record per line, followed verbatim by
// any lines a previous scan could not decode.
func writeJSONL[T any](path string, records []T, rejected [][]byte) error {
	var buf bytes.Buffer
	for i := range records {
		line, err := json.Marshal(records[i])
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	for _, line := range rejected {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return atomicWrite(path, buf.Bytes())
}

// appendJSONL appends one record to path, creating it if needed.
func appendJSONL(path string, record any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// atomicWrite replaces path with data via a synced temp file and rename.
// An existing file is first copied to path + BackupSuffix.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".issueflow-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+constants.BackupSuffix); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //#nosec G304 -- path is constructed internally
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
