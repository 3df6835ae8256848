package netmon

import (
	"sync"

	"github.com/hospitalzapata/wardsync/internal/events"
)

// Monitor tracks connectivity state. The state is outcome driven:
// callers report it after each transport attempt rather than probing.
// Subscribers are notified on the offline to online edge only.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []func()
	logger *events.Logger
}

// NewMonitor creates a monitor that starts online.
func NewMonitor(logger *events.Logger) *Monitor {
	return &Monitor{
		online: true,
		logger: logger.WithField("component", "netmon"),
	}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the connectivity state. Moving from offline to
// online fires every subscriber once.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var subs []func()
	if online && !wasOnline {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	if online != wasOnline {
		m.logger.WithField("online", online).Info("Connectivity changed")
	}

	for _, fn := range subs {
		fn()
	}
}

// Subscribe registers a callback for the offline to online edge. The
// callback runs on the goroutine that calls SetOnline.
func (m *Monitor) Subscribe(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}
