// Package notify delivers the human-readable success and error messages that
// edit sessions produce after every operation.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink receives one message per edit operation.
type Sink interface {
	Success(msg string)
	Error(msg string)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

// ZapSink logs messages through a zap logger: successes at info, errors at
// warn, since a rejected edit is a user mistake rather than a fault.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps logger. A nil logger yields a no-op zap logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("notify")}
}

func (s *ZapSink) Success(msg string) {
	s.logger.Info(msg, zap.String("outcome", "success"))
}

func (s *ZapSink) Error(msg string) {
	s.logger.Warn(msg, zap.String("outcome", "error"))
}

// WriterSink prints successes to out and errors to errOut.
type WriterSink struct {
	out    io.Writer
	errOut io.Writer
}

// NewWriterSink returns a sink printing to the given writers.
func NewWriterSink(out, errOut io.Writer) *WriterSink {
	return &WriterSink{out: out, errOut: errOut}
}

func (s *WriterSink) Success(msg string) {
	fmt.Fprintln(s.out, msg)
}

func (s *WriterSink) Error(msg string) {
	fmt.Fprintln(s.errOut, "error:", msg)
}

// Multi fans every message out to each sink in order.
type Multi []Sink

func (m Multi) Success(msg string) {
	for _, s := range m {
		s.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, s := range m {
		s.Error(msg)
	}
}

// Message is one recorded notification.
type Message struct {
	OK   bool
	Text string
}

// Recorder keeps every message it receives. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Success(msg string) { r.add(true, msg) }
func (r *Recorder) Error(msg string)   { r.add(false, msg) }

func (r *Recorder) add(ok bool, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{OK: ok, Text: msg})
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message, or the zero Message if none.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}
	}
	return r.messages[len(r.messages)-1]
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
