// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends one JSON line per [ProtocolEvent] to
// `fakenet_YYYY-MM-DD.jsonl` under dir.
type Logger struct {
	dir     string
	now     func() time.Time
	mu      sync.Mutex
	file    *os.File
	curDate string
}

// NewLogger returns a [*Logger] that appends to dir. The file is created
// (and rotated by date) lazily on the first [Logger.Append] call.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir, now: time.Now}
}

// Append writes one JSON line for ev, opening (or rotating to) the file
// named for the current UTC date if needed.
func (l *Logger) Append(ev ProtocolEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := l.now().UTC().Format("2006-01-02")
	if l.file == nil || date != l.curDate {
		if l.file != nil {
			l.file.Close()
		}
		path := filepath.Join(l.dir, fmt.Sprintf("fakenet_%s.jsonl", date))
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			// Logging failures must never block the fake-network data path.
			return
		}
		l.file = f
		l.curDate = date
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	line = append(line, '\n')
	l.file.Write(line)
}

// Close closes the underlying file, if open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
