package infra

// mockProbe is a test double for domain.ProcessProbe.
type mockProbe struct {
	runningPIDs map[int]bool
	selfPID     int
}

func newMockProbe() *mockProbe {
	return &mockProbe{
		runningPIDs: make(map[int]bool),
		selfPID:     999,
	}
}

func (m *mockProbe) setRunning(pid int, running bool) {
	if running {
		m.runningPIDs[pid] = true
		return
	}
	delete(m.runningPIDs, pid)
}

func (m *mockProbe) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProbe) CurrentPID() int {
	return m.selfPID
}
