package editor

import (
	"log"

	"github.com/meikuraledutech/flow/history"
)

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used for rejected intents and load/save
// outcomes. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHistorySize bounds the undo history. Zero or less keeps
// history.DefaultCapacity.
func WithHistorySize(n int) Option {
	return func(e *Editor) {
		e.history = history.New(n)
	}
}

// WithContentPicker installs the collaborator used by PickContent.
func WithContentPicker(p ContentPicker) Option {
	return func(e *Editor) {
		e.picker = p
	}
}
