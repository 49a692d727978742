package executor

import (
	"context"
	"sync"
)

// MockRunner is a test double for Runner.
type MockRunner struct {
	Result         Result
	Err            error
	LastSubmission *Submission // captures the last submission for inspection

	mu    sync.Mutex
	calls int
}

// NewMockRunner creates a MockRunner that exits 0 with the given stdout.
func NewMockRunner(stdout string) *MockRunner {
	return &MockRunner{Result: Result{Stdout: stdout}}
}

func (m *MockRunner) Run(_ context.Context, sub Submission) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.LastSubmission = &sub
	if m.Err != nil {
		return Result{}, m.Err
	}
	return m.Result, nil
}

func (m *MockRunner) HealthCheck(_ context.Context) error {
	return m.Err
}

// Calls returns how many submissions the mock has received.
func (m *MockRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
