package cloud

import "sync"

// ReportRecord is one recorded ReportState call.
type ReportRecord struct {
	Property string
	Value    any
}

// MockClient is a scriptable Client for tests. SetupClient pops results
// off SetupScript (falling back to the current connected state once the
// script runs out), and FireStatus drives the registered callback the way
// the broker session would.
type MockClient struct {
	mu sync.Mutex

	statusFn    func(connected bool)
	SetupScript []bool

	connected     bool
	setupCalls    int
	periodicCalls int
	reports       []ReportRecord
	closed        bool

	ReportErr error
}

// NewMockClient creates a disconnected MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SetConnectionStatusCallback stores fn for FireStatus.
func (m *MockClient) SetConnectionStatusCallback(fn func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusFn = fn
}

// SetupClient consumes the next scripted result. A true result also marks
// the mock connected.
func (m *MockClient) SetupClient() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setupCalls++
	if len(m.SetupScript) > 0 {
		result := m.SetupScript[0]
		m.SetupScript = m.SetupScript[1:]
		if result {
			m.connected = true
		}
		return result
	}
	return m.connected
}

// DoPeriodicTasks counts pump calls.
func (m *MockClient) DoPeriodicTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periodicCalls++
}

// ReportState records the call, or fails with ReportErr when set.
func (m *MockClient) ReportState(property string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReportErr != nil {
		return m.ReportErr
	}
	m.reports = append(m.reports, ReportRecord{Property: property, Value: value})
	return nil
}

// Close marks the mock closed.
func (m *MockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.connected = false
}

// FireStatus invokes the registered status callback, mimicking a session
// event from the client's own goroutine.
func (m *MockClient) FireStatus(connected bool) {
	m.mu.Lock()
	fn := m.statusFn
	m.connected = connected
	m.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}

// IsConnected reports the mock's connected state.
func (m *MockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetupCalls returns how many times SetupClient ran.
func (m *MockClient) SetupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupCalls
}

// PeriodicCalls returns how many times DoPeriodicTasks ran.
func (m *MockClient) PeriodicCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periodicCalls
}

// Reports returns a copy of the recorded ReportState calls.
func (m *MockClient) Reports() []ReportRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReportRecord, len(m.reports))
	copy(out, m.reports)
	return out
}

// Closed reports whether Close ran.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
