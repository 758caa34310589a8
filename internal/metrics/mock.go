package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                     sync.Mutex
	matchesReported        int
	standingsRecalculated  int
	recalculationDurations []float64
	storeErrors            map[string]int
	changeEvents           map[string]int
	notificationsSent      int
	notificationsFailed    int
	startupTime            float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		recalculationDurations: make([]float64, 0),
		storeErrors:            make(map[string]int),
		changeEvents:           make(map[string]int),
	}
}

func (m *Mock) IncMatchesReported() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesReported++
}

func (m *Mock) IncStandingsRecalculated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.standingsRecalculated++
}

func (m *Mock) ObserveRecalculationDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recalculationDurations = append(m.recalculationDurations, duration)
}

func (m *Mock) IncStoreErrors(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErrors[operation]++
}

func (m *Mock) IncChangeEvents(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeEvents[collection]++
}

func (m *Mock) IncNotificationsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsSent++
}

func (m *Mock) IncNotificationsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesReported returns the number of times IncMatchesReported was called.
func (m *Mock) MatchesReported() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesReported
}

// StandingsRecalculated returns the number of times IncStandingsRecalculated was called.
func (m *Mock) StandingsRecalculated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.standingsRecalculated
}

// StoreErrors returns how often IncStoreErrors was called for operation.
func (m *Mock) StoreErrors(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storeErrors[operation]
}

// ChangeEvents returns how often IncChangeEvents was called for collection.
func (m *Mock) ChangeEvents(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changeEvents[collection]
}

// NotificationsSent returns the number of times IncNotificationsSent was called.
func (m *Mock) NotificationsSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsSent
}

// NotificationsFailed returns the number of times IncNotificationsFailed was called.
func (m *Mock) NotificationsFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsFailed
}
