// Package transcript records conversation turns as NDJSON, one file per
// session. Writing is asynchronous so a slow disk never stalls a turn.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config controls transcript logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Event is one logged conversation turn.
type Event struct {
	Timestamp   time.Time `json:"ts"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Corrections int       `json:"corrections,omitempty"`
}

// Logger appends events to per-session NDJSON files through a bounded
// queue. When the queue is full new events are dropped rather than blocking
// the caller; the transcript is a secondary artifact of the conversation.
type Logger struct {
	cfg    Config
	log    *slog.Logger
	queue  chan Event
	done   chan struct{}
	closed sync.Once
}

// New creates a transcript logger. A disabled config returns a logger whose
// Log is a no-op.
func New(cfg Config, log *slog.Logger) (*Logger, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	l := &Logger{cfg: cfg, log: log, done: make(chan struct{})}
	if !cfg.Enabled {
		close(l.done)
		return l, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	l.queue = make(chan Event, cfg.QueueSize)
	go l.drain()
	return l, nil
}

// Log enqueues an event. Never blocks.
func (l *Logger) Log(event Event) {
	if !l.cfg.Enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case l.queue <- event:
	default:
		l.log.Warn("transcript queue full, dropping event", "session_id", event.SessionID)
	}
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	if !l.cfg.Enabled {
		return nil
	}
	l.closed.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *Logger) drain() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.log.Warn("failed to write transcript event", "session_id", event.SessionID, "error", err)
		}
	}
}

func (l *Logger) write(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	path := filepath.Join(l.cfg.Dir, event.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append transcript line: %w", err)
	}
	return nil
}
