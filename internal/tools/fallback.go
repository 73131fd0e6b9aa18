package tools

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"
)

// FallbackEntry is one undelivered payload captured locally.
type FallbackEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
	Reason    string         `json:"reason"`
}

// FallbackLog is the durable append-only record of payloads that could not
// reach their external destination. Writes are serialized; the file is
// opened per append so the log survives crashes between entries.
type FallbackLog struct {
	path string
	mu   sync.Mutex
}

func NewFallbackLog(path string) (*FallbackLog, error) {
	if path == "" {
		return nil, errors.New("fallback log path required")
	}
	return &FallbackLog{path: path}, nil
}

// Append writes one JSON line for the attempted delivery.
func (l *FallbackLog) Append(entry FallbackEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// Entries reads the whole log back, oldest first.
func (l *FallbackLog) Entries() ([]FallbackEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var entries []FallbackEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e FallbackEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
