package config

import (
	"errors"
	"strings"

	"github.com/peterh/liner"
)

// TerminalPrompter reads missing configuration values from the
// terminal. The token is read without echo. Close must be called to
// restore the terminal state.
type TerminalPrompter struct {
	line *liner.State
}

// NewTerminalPrompter opens the terminal for prompting.
func NewTerminalPrompter() *TerminalPrompter {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &TerminalPrompter{line: l}
}

// Close restores the terminal.
func (t *TerminalPrompter) Close() error {
	return t.line.Close()
}

// Prompt reads one line of input.
func (t *TerminalPrompter) Prompt(label string) (string, error) {
	s, err := t.line.Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errors.New("prompt aborted")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// PasswordPrompt reads one line of input without echoing it.
func (t *TerminalPrompter) PasswordPrompt(label string) (string, error) {
	s, err := t.line.PasswordPrompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errors.New("prompt aborted")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
