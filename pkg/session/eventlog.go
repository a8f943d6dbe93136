package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// eventLog is the append-only sink for externally reported events. Every
// append is synced to disk before returning, so a crash immediately after a
// call never loses that event. A single mutex serializes writers, which keeps
// append order equal to call order and timestamps non-decreasing.
type eventLog struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

func openEventLog(path string) (*eventLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	return &eventLog{file: file, encoder: encoder}, nil
}

func (l *eventLog) append(rec EventRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ErrNotRecording
	}
	if err := l.encoder.Encode(rec); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync event log: %w", err)
	}
	return nil
}

func (l *eventLog) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
