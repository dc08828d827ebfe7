// Package intent holds the structured result of classifying one user command
// and the interface every classifier implements.
package intent

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Action string

const (
	Open    Action = "open"
	Close   Action = "close"
	Search  Action = "search"
	Play    Action = "play"
	Quit    Action = "quit"
	Write   Action = "write"
	Unknown Action = "unknown"
	Error   Action = "error"
)

// Origin tells the dispatcher which classifier produced an Intent.
type Origin string

const (
	Remote Origin = "remote"
	Legacy Origin = "legacy"
)

// Intent is built fresh for every command and never persisted.
// Empty strings stand for JSON null.
type Intent struct {
	Action     Action  `json:"action"`
	Target     string  `json:"target"`
	Platform   string  `json:"platform"`
	Search     string  `json:"search"`
	Confidence float64 `json:"confidence"`
	Origin     Origin  `json:"-"`
}

// Classifier turns free text into an Intent. Implementations never fail:
// problems are reported as an Error intent.
type Classifier interface {
	Classify(ctx context.Context, text string) Intent
}

// Failed is the intent returned when a classifier could not do its job.
func Failed(origin Origin) Intent {
	return Intent{Action: Error, Confidence: 0, Origin: origin}
}

// Usable reports whether the action is one the classifier claims to have
// understood, i.e. anything except error and unknown.
func (i Intent) Usable() bool {
	return i.Action != Error && i.Action != Unknown
}

var lower = cases.Lower(language.French)

// Normalize lower-cases a command the way rule-based processing expects it.
func Normalize(text string) string {
	return strings.TrimSpace(lower.String(text))
}
