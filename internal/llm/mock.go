package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrMockFailure is returned by a MockCompleter configured to fail.
var ErrMockFailure = errors.New("mock completer failure")

// MockCompleter is a scripted Completer for tests. Responses are consumed
// in order; when the queue is empty the last response repeats. FailAll
// makes every call error, and FailFirst fails the first N calls.
type MockCompleter struct {
	mu        sync.Mutex
	Responses []string
	FailAll   bool
	FailFirst int

	calls   int
	prompts []string
}

// Complete implements Completer.
func (m *MockCompleter) Complete(_ context.Context, prompt string) (Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, prompt)

	if m.FailAll || m.calls <= m.FailFirst {
		return Completion{}, ErrMockFailure
	}

	text := "mock response"

	if len(m.Responses) > 0 {
		idx := m.calls - m.FailFirst - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}

		text = m.Responses[idx]
	}

	return Completion{
		Text:  text,
		Usage: Usage{InputTokens: len(prompt) / 4, OutputTokens: len(text) / 4},
	}, nil
}

// Calls returns how many times Complete ran.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// Prompts returns every prompt received so far.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.prompts))
	copy(out, m.prompts)

	return out
}
