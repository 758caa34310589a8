package notifier

import (
	"context"
	"sync"

	"github.com/mauv0809/strategium/internal/league"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Call records
	SendMatchReportCalls []MatchReport
	SendStandingsCalls   []struct {
		LeagueName string
		Ranked     []league.Player
	}

	// Spies
	SendMatchReportFunc func(ctx context.Context, report MatchReport) error
	SendStandingsFunc   func(ctx context.Context, leagueName string, ranked []league.Player) error
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock notifier.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) SendMatchReport(ctx context.Context, report MatchReport) error {
	m.mu.Lock()
	m.SendMatchReportCalls = append(m.SendMatchReportCalls, report)
	fn := m.SendMatchReportFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, report)
	}
	return nil
}

func (m *Mock) SendStandings(ctx context.Context, leagueName string, ranked []league.Player) error {
	m.mu.Lock()
	m.SendStandingsCalls = append(m.SendStandingsCalls, struct {
		LeagueName string
		Ranked     []league.Player
	}{leagueName, ranked})
	fn := m.SendStandingsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, leagueName, ranked)
	}
	return nil
}

func (m *Mock) FormatStandingsResponse(leagueName string, ranked []league.Player) (any, error) {
	return map[string]any{"league": leagueName, "players": len(ranked)}, nil
}

// MatchReports returns a copy of the recorded SendMatchReport calls.
func (m *Mock) MatchReports() []MatchReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MatchReport(nil), m.SendMatchReportCalls...)
}
