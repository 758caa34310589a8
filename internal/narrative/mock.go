package narrative

import (
	"context"
	"sync"
)

// MockGenerator is a Generator for tests. It is safe for concurrent use.
type MockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, req Request) (string, error)
	Requests     []Request
}

var _ Generator = (*MockGenerator)(nil)

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.GenerateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return Describe(req), nil
}

// Calls returns a copy of the recorded requests.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.Requests...)
}
