package engine

import (
	"context"
	"sync"
)

// MockPrompter is a test implementation of the Prompter interface. It
// accepts every suggestion when acceptAll is set and skips otherwise, unless
// a per-photo decision has been registered.
type MockPrompter struct {
	decisions map[string]ReviewDecision
	err       error
	calls     []PendingReview
	mu        sync.Mutex
	acceptAll bool
}

// NewMockPrompter creates a new mock review prompter.
func NewMockPrompter(acceptAll bool) *MockPrompter {
	return &MockPrompter{
		decisions: make(map[string]ReviewDecision),
		acceptAll: acceptAll,
	}
}

// SetDecision registers the decision returned for one photo ID.
func (m *MockPrompter) SetDecision(photoID string, decision ReviewDecision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[photoID] = decision
}

// SetError makes every review fail with err.
func (m *MockPrompter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ReviewPhoto records the pending review and returns the configured decision.
func (m *MockPrompter) ReviewPhoto(_ context.Context, pending PendingReview) (ReviewDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, pending)

	if m.err != nil {
		return ReviewDecision{}, m.err
	}
	if decision, ok := m.decisions[pending.Photo.ID]; ok {
		return decision, nil
	}
	if m.acceptAll {
		return ReviewDecision{Labels: suggestionNames(pending.Suggestions)}, nil
	}
	return ReviewDecision{Skip: true}, nil
}

// Calls returns the pending reviews seen so far.
func (m *MockPrompter) Calls() []PendingReview {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]PendingReview, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of reviews requested.
func (m *MockPrompter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
