package core

import "context"

// Prompter is the user-facing confirmation/alert surface.
// Confirm blocks until the user answers; Alert reports a message (operation summaries, failures).
type Prompter interface {
	Confirm(title, message string) (bool, error)
	Alert(title, message string)
}

// PropertyStore is the persisted, flat string-keyed configuration store.
type PropertyStore interface {
	GetProperty(ctx context.Context, key string) (string, bool, error)
	SetProperty(ctx context.Context, key, value string) error
}

type nopPrompter struct{ answer bool }

// NewStaticPrompter returns a Prompter answering every confirmation with `answer` and discarding alerts.
func NewStaticPrompter(answer bool) Prompter {
	return nopPrompter{answer: answer}
}

func (p nopPrompter) Confirm(string, string) (bool, error) { return p.answer, nil }
func (p nopPrompter) Alert(string, string)                  {}
