package chunker

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// DoneLog is a per-chunk append-only ledger of successfully copied
// destination keys. It is the sole source of idempotence: a destination
// present in the log is never copied again on resume. Append is safe for
// concurrent callers.
type DoneLog struct {
	mu   sync.Mutex
	path string
	done map[string]struct{}
	f    *os.File
}

// OpenDoneLog opens (creating if needed) the done-log at path and loads
// any existing entries.
func OpenDoneLog(path string) (*DoneLog, error) {
	done := make(map[string]struct{})

	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				done[line] = struct{}{}
			}
		}
		scanErr := scanner.Err()
		_ = existing.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("read done-log %s: %w", path, scanErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open done-log %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open done-log %s for append: %w", path, err)
	}

	return &DoneLog{path: path, done: done, f: f}, nil
}

// Contains reports whether dstKey has already been copied.
func (l *DoneLog) Contains(dstKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[dstKey]
	return ok
}

// Len returns the number of recorded destinations.
func (l *DoneLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done)
}

// Append durably records dstKey. The write hits the file before the
// in-memory set so a crash can lose at most the in-flight copy, never a
// recorded one.
func (l *DoneLog) Append(dstKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.done[dstKey]; ok {
		return nil
	}
	if _, err := l.f.WriteString(dstKey + "\n"); err != nil {
		return fmt.Errorf("append done-log %s: %w", l.path, err)
	}
	l.done[dstKey] = struct{}{}
	return nil
}

// Close releases the underlying file.
func (l *DoneLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
