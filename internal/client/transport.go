// Package client implements the client side of the live channel: a
// reconnecting transport that owns the connection status, and a monitor
// that translates that status for display.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState enumerates the transport connection states.
type ConnState string

const (
	StateConnected  ConnState = "connected"
	StateConnecting ConnState = "connecting"
	StateWaiting    ConnState = "waiting"
	StateOffline    ConnState = "offline"
)

// Status is the observable connection state. RetryDelay is only meaningful
// in StateWaiting; Retries counts attempts since the last successful
// connect.
type Status struct {
	State      ConnState
	Retries    int
	RetryDelay time.Duration
}

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Transport maintains a live-channel connection with automatic reconnection
// and exponential backoff. It is the sole writer of the connection status;
// observers subscribe and are invoked synchronously on every transition.
type Transport struct {
	url    string
	header map[string][]string
	dialer *websocket.Dialer

	baseDelay time.Duration
	maxDelay  time.Duration

	mu      sync.Mutex
	status  Status
	subs    map[int]func(Status)
	nextSub int
}

// NewTransport creates a Transport for the given live-channel URL. The
// token is passed as a query parameter by the caller; header may be nil.
func NewTransport(url string, header map[string][]string) *Transport {
	return &Transport{
		url:       url,
		header:    header,
		dialer:    websocket.DefaultDialer,
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
		status:    Status{State: StateOffline},
		subs:      make(map[int]func(Status)),
	}
}

// Status returns the current connection status.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Subscribe registers an observer invoked synchronously on every status
// transition, and returns its unsubscribe function. The observer must not
// block; it runs on the transport's goroutine.
func (t *Transport) Subscribe(fn func(Status)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// Run drives the connect/reconnect loop until ctx is cancelled. On
// cancellation the status settles on offline.
func (t *Transport) Run(ctx context.Context) {
	retries := 0
	for {
		t.setStatus(Status{State: StateConnecting, Retries: retries})

		conn, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err == nil {
			retries = 0
			t.setStatus(Status{State: StateConnected})
			t.readUntilClosed(ctx, conn)
			conn.Close()
		}

		if ctx.Err() != nil {
			t.setStatus(Status{State: StateOffline})
			return
		}

		retries++
		delay := t.retryDelay(retries)
		t.setStatus(Status{State: StateWaiting, Retries: retries, RetryDelay: delay})

		select {
		case <-ctx.Done():
			t.setStatus(Status{State: StateOffline})
			return
		case <-time.After(delay):
		}
	}
}

// retryDelay doubles the base delay per attempt, capped at maxDelay.
func (t *Transport) retryDelay(retry int) time.Duration {
	delay := t.baseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= t.maxDelay {
			return t.maxDelay
		}
	}
	if delay > t.maxDelay {
		return t.maxDelay
	}
	return delay
}

func (t *Transport) readUntilClosed(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	case <-done:
	}
}

// setStatus publishes a transition. Subscribers run synchronously, outside
// the lock so they may read Status() without deadlocking.
func (t *Transport) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	subs := make([]func(Status), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
