package recordlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/spf13/cast"
)

// maxLineSize bounds a single record line.
const maxLineSize = 16 * 1024 * 1024

// Log is an append-only file of newline-delimited JSON records. A line
// carrying the delete field is a tombstone for the key it holds.
type Log struct {
	path     string
	metadata db.Metadata
	logger   logger.Logger
	mu       sync.Mutex
}

func New(logger logger.Logger, path string, metadata db.Metadata) (*Log, error) {
	metadata, err := db.CheckMetadata(metadata)
	if err != nil {
		logger.Error("invalid record log metadata", "err", err.Error())
		return nil, err
	}
	if path == "" {
		return nil, &db.ConfigurationError{Field: "log_path", Reason: "record log path cannot be empty"}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Error("failed to create record log directory", "err", err.Error(), "path", path)
		return nil, fmt.Errorf("failed to create record log directory: %w", err)
	}

	return &Log{path: path, metadata: metadata, logger: logger}, nil
}

func (l *Log) Path() string {
	return l.path
}

// Load replays the log into a collection. A missing file is an empty log.
func (l *Log) Load() (db.Collection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := db.Collection{}

	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.Info("record log does not exist yet, starting empty", "path", l.path)
		return records, nil
	}
	if err != nil {
		l.logger.Error("failed to open record log", "path", l.path, "err", err.Error())
		return nil, fmt.Errorf("failed to open record log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record db.Record
		if err := json.Unmarshal(line, &record); err != nil {
			l.logger.Error("failed to parse record log line", "path", l.path, "line", lineNumber, "err", err.Error())
			return nil, fmt.Errorf("failed to parse line %d of %s: %w", lineNumber, l.path, err)
		}

		if deleted, ok := record[l.metadata.DeleteField]; ok && deleted != nil {
			key, err := cast.ToStringE(deleted)
			if err != nil {
				l.logger.Warn("ignoring tombstone with invalid key", "line", lineNumber, "err", err.Error())
				continue
			}
			delete(records, key)
			continue
		}

		key, err := l.keyOf(record)
		if err != nil {
			l.logger.Warn("ignoring record without a key", "line", lineNumber, "err", err.Error())
			continue
		}
		records[key] = record
	}
	if err := scanner.Err(); err != nil {
		l.logger.Error("failed to read record log", "path", l.path, "err", err.Error())
		return nil, fmt.Errorf("failed to read record log: %w", err)
	}

	l.logger.Info("loaded record log", "path", l.path, "lines", lineNumber, "records", len(records))
	return records, nil
}

// Append writes one record line, or a tombstone for key when record is nil.
func (l *Log) Append(key string, record db.Record) error {
	if key == "" {
		return &db.InvalidArgumentError{Argument: "key", Reason: "key cannot be empty"}
	}

	line := record
	if record == nil {
		line = db.Record{l.metadata.DeleteField: key}
	}

	data, err := json.Marshal(line)
	if err != nil {
		l.logger.Error("failed to marshal record", "key", key, "err", err.Error())
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Error("failed to open record log for append", "path", l.path, "err", err.Error())
		return fmt.Errorf("failed to open record log: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		l.logger.Error("failed to append to record log", "path", l.path, "key", key, "err", err.Error())
		return fmt.Errorf("failed to append record %s: %w", key, err)
	}

	return file.Close()
}

func (l *Log) keyOf(record db.Record) (string, error) {
	value, ok := record[l.metadata.KeyField]
	if !ok || value == nil {
		return "", fmt.Errorf("record has no %s field", l.metadata.KeyField)
	}
	return cast.ToStringE(value)
}
