package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ExchangeLogConfig controls NDJSON logging of prompt/completion exchanges.
type ExchangeLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ExchangeLogEvent is one line in the exchange log.
type ExchangeLogEvent struct {
	Timestamp  string         `json:"ts"`
	ExchangeID string         `json:"exchange_id"`
	RequestID  string         `json:"request_id,omitempty"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	Model      string         `json:"model,omitempty"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ExchangeLogger records exchanges. Log must never block the request path.
type ExchangeLogger interface {
	Log(event ExchangeLogEvent)
	Close() error
}

// NoopExchangeLogger discards every event.
type NoopExchangeLogger struct{}

// Log discards event.
func (NoopExchangeLogger) Log(ExchangeLogEvent) {}

// Close is a no-op.
func (NoopExchangeLogger) Close() error { return nil }

type fileExchangeLogger struct {
	dir    string
	queue  chan ExchangeLogEvent
	done   chan struct{}
	logger *slog.Logger
	now    func() time.Time

	// mu guards closed and the send on queue against Close.
	mu     sync.RWMutex
	closed bool
}

// NewExchangeLogger returns a logger writing one NDJSON file per UTC day under cfg.Dir.
// A disabled config yields a NoopExchangeLogger.
func NewExchangeLogger(cfg ExchangeLogConfig, logger *slog.Logger) (ExchangeLogger, error) {
	if !cfg.Enabled {
		return NoopExchangeLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("exchange log dir cannot be empty")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create exchange log dir: %w", err)
	}

	l := &fileExchangeLogger{
		dir:    cfg.Dir,
		queue:  make(chan ExchangeLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
		now:    time.Now,
	}
	go l.run()
	return l, nil
}

// Log enqueues event without blocking. Events logged after Close are dropped.
func (l *fileExchangeLogger) Log(event ExchangeLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = normalizeWhitespace(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.logger.Debug("exchange log closed, dropping event", "exchange_id", event.ExchangeID, "event_type", event.EventType)
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("exchange log queue full, dropping event", "exchange_id", event.ExchangeID, "event_type", event.EventType)
	}
}

// Close drains queued events and stops the writer.
func (l *fileExchangeLogger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *fileExchangeLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write exchange log event", "error", err, "exchange_id", event.ExchangeID)
		}
	}
}

func (l *fileExchangeLogger) write(event ExchangeLogEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	day := l.now().UTC().Format("2006-01-02")
	path := filepath.Join(l.dir, day+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

var whitespacePattern = regexp.MustCompile(`[ \t]+`)

// normalizeWhitespace collapses runs of spaces and tabs and unifies line endings.
func normalizeWhitespace(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
