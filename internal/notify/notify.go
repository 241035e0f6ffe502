// Package notify carries user-facing notifications (success, info, warning
// and error messages) from the heuristic flows to whichever front-end is
// driving them.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single user-facing message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives user-facing messages.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Buffer collects notifications until they are drained. It is safe for
// concurrent use.
type Buffer struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{now: time.Now}
}

func (b *Buffer) add(level Level, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	b.items = append(b.items, Notification{Level: level, Message: msg, At: now()})
}

func (b *Buffer) Success(msg string) { b.add(LevelSuccess, msg) }
func (b *Buffer) Info(msg string)    { b.add(LevelInfo, msg) }
func (b *Buffer) Warning(msg string) { b.add(LevelWarning, msg) }
func (b *Buffer) Error(msg string)   { b.add(LevelError, msg) }

// Drain returns every buffered notification and empties the buffer.
func (b *Buffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Peek returns a copy of the buffered notifications without draining.
func (b *Buffer) Peek() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Log writes notifications to a zap logger.
type Log struct {
	log *zap.SugaredLogger
}

// NewLog creates a Notifier backed by log.
func NewLog(log *zap.SugaredLogger) *Log {
	return &Log{log: log}
}

func (l *Log) Success(msg string) { l.log.Infow(msg, "level", LevelSuccess) }
func (l *Log) Info(msg string)    { l.log.Infow(msg, "level", LevelInfo) }
func (l *Log) Warning(msg string) { l.log.Warnw(msg, "level", LevelWarning) }
func (l *Log) Error(msg string)   { l.log.Errorw(msg, "level", LevelError) }

// Multi fans each notification out to every sink.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

func (m Multi) Warning(msg string) {
	for _, n := range m {
		n.Warning(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

// Discard drops every notification.
var Discard Notifier = Multi(nil)
