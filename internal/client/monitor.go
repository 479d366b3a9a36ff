package client

import (
	"fmt"
	"sync"
	"time"
)

// Monitor observes the transport's connection status and renders it as a
// status banner. It performs no writes and no network calls; it is a pure
// adapter between the transport and the UI. The banner is persistent: a
// non-empty banner stays up until the next transition clears it.
type Monitor struct {
	mu          sync.Mutex
	status      Status
	subs        map[int]func(string)
	nextSub     int
	unsubscribe func()
}

// NewMonitor attaches a Monitor to the transport. Close detaches it.
func NewMonitor(t *Transport) *Monitor {
	m := &Monitor{
		status: t.Status(),
		subs:   make(map[int]func(string)),
	}
	m.unsubscribe = t.Subscribe(m.update)
	return m
}

// Banner returns the current status line, or the empty string when the
// transport is connected; a healthy connection renders nothing.
func (m *Monitor) Banner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return renderBanner(m.status)
}

// Status returns the last observed transport status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnChange registers a callback invoked synchronously with the rendered
// banner on every transport transition. Returns the unregister function.
func (m *Monitor) OnChange(fn func(banner string)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close detaches the monitor from its transport.
func (m *Monitor) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// update runs on the transport's goroutine, synchronously per transition.
func (m *Monitor) update(s Status) {
	m.mu.Lock()
	m.status = s
	banner := renderBanner(s)
	subs := make([]func(string), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(banner)
	}
}

func renderBanner(s Status) string {
	switch s.State {
	case StateConnected:
		return ""
	case StateConnecting:
		return "Connecting to server..."
	case StateWaiting:
		return fmt.Sprintf("Connection lost. Retrying in %s (attempt %d)...",
			s.RetryDelay.Round(time.Second), s.Retries)
	case StateOffline:
		return "Offline. The server is unreachable."
	default:
		return ""
	}
}
