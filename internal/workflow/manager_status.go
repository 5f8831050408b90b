package workflow

import "time"

// StatusSummary represents lightweight scheduler diagnostics.
type StatusSummary struct {
	Folder          string
	Running         bool
	LastError       string
	LastTick        time.Time
	Ticks           uint64
	GroupsTracked   int
	ProductsWritten int
	GroupsRetired   int
}

// Status returns the latest scheduler information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Folder:          m.folder.Name,
		Running:         m.running,
		LastTick:        m.lastTick,
		Ticks:           m.ticks,
		ProductsWritten: m.written,
		GroupsRetired:   m.retired,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()
	summary.GroupsTracked = m.organizer.Len()
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) recordTick(result TickResult) {
	m.mu.Lock()
	m.ticks++
	m.lastTick = m.now()
	m.written += result.Written
	m.retired += result.Retired
	m.mu.Unlock()
}
