// Package diagnostics renders the original plugin's DiagnosticsSender —
// a sender-name + numeric-level pub/sub channel for informational,
// warning, and error messages — on top of log/slog, the teacher's
// logging library.
package diagnostics

import (
	"log/slog"
	"sync"
)

// Level mirrors spec.md §6's level taxonomy: 0-1 informational, 2
// warning, 3 error.
type Level int

const (
	LevelInfo    Level = 0
	LevelDetail  Level = 1
	LevelWarning Level = 2
	LevelError   Level = 3
)

// Message is one diagnostic event.
type Message struct {
	Sender string
	Level  Level
	Text   string
}

// Subscriber receives diagnostic messages at or above its minimum level.
type Subscriber struct {
	MinLevel Level
	Deliver  func(Message)
}

// Unsubscribe removes a previously added subscription.
type Unsubscribe func()

// Sink is the engine-wide diagnostics publisher. The zero value is not
// usable; construct with New.
type Sink struct {
	mu   sync.Mutex
	subs map[int]Subscriber
	next int
	log  *slog.Logger
}

// New constructs a Sink that also logs every message through logger (or
// slog.Default() if logger is nil).
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		subs: make(map[int]Subscriber),
		log:  logger,
	}
}

// Subscribe registers a subscriber and returns a delegate to cancel it.
// Grounded on spec.md §4.2's wsDiagnosticsUnsubscribeDelegate. The Sink
// is one process-wide mechanism; sessions do not subscribe to it.
func (s *Sink) Subscribe(sub Subscriber) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = sub
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Publish delivers msg to every subscriber whose MinLevel is satisfied,
// and always logs it through the process logger.
func (s *Sink) Publish(sender string, level Level, text string) {
	msg := Message{Sender: sender, Level: level, Text: text}

	s.logMessage(msg)

	s.mu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if level >= sub.MinLevel {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Deliver(msg)
	}
}

func (s *Sink) logMessage(msg Message) {
	attrs := []any{"sender", msg.Sender}
	switch {
	case msg.Level >= LevelError:
		s.log.Error(msg.Text, attrs...)
	case msg.Level >= LevelWarning:
		s.log.Warn(msg.Text, attrs...)
	default:
		s.log.Info(msg.Text, attrs...)
	}
}
