// Package ui holds the contracts the agenda engine uses to talk to whatever
// shell is hosting it: transient notifications and blocking yes/no decisions.
package ui

import "context"

// Level classifies a notification
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a short, non-technical message for the user
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows transient notices
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Confirmer suspends the calling flow until the user answers a yes/no
// question. Dismissing the question, or ctx ending, counts as "no".
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmerFunc adapts a function to Confirmer
type ConfirmerFunc func(ctx context.Context, message string) bool

// Confirm calls f(ctx, message)
func (f ConfirmerFunc) Confirm(ctx context.Context, message string) bool { return f(ctx, message) }

// Info builds an informational notice
func Info(msg string) Notice { return Notice{Level: LevelInfo, Message: msg} }

// Success builds a success notice
func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }

// Error builds an error notice
func Error(msg string) Notice { return Notice{Level: LevelError, Message: msg} }
