package testutil

import (
	"context"
	"sync"

	"agentchat/client"
	"agentchat/protocol"
)

// MockBackend implements model.Backend for testing
type MockBackend struct {
	// Configurable responses
	CreateSessionFunc func(ctx context.Context, backendURL, appName, userID string) (string, error)
	StreamQueryFunc   func(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation)
	PingFunc          func(ctx context.Context, backendURL string) error

	mu          sync.Mutex
	createCalls int
	queries     []client.QueryConfig
	nextSession int
}

// NewMockBackend creates a mock backend with default implementations
func NewMockBackend() *MockBackend {
	mock := &MockBackend{}
	mock.CreateSessionFunc = mock.defaultCreateSession
	mock.StreamQueryFunc = mock.defaultStreamQuery
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockBackend) defaultCreateSession(ctx context.Context, backendURL, appName, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSession++
	return SessionID(m.nextSession), nil
}

func (m *MockBackend) defaultStreamQuery(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation) {
	// Default: the reply from the reference conversation
	for _, ev := range HelloReply() {
		if cancel.IsCancelled() {
			return
		}
		sink.HandleEvent(ev)
	}
}

func (m *MockBackend) defaultPing(ctx context.Context, backendURL string) error {
	return nil
}

func (m *MockBackend) CreateSession(ctx context.Context, backendURL, appName, userID string) (string, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	return m.CreateSessionFunc(ctx, backendURL, appName, userID)
}

func (m *MockBackend) StreamQuery(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation) {
	m.mu.Lock()
	m.queries = append(m.queries, cfg)
	m.mu.Unlock()
	m.StreamQueryFunc(cfg, sink, cancel)
}

func (m *MockBackend) Ping(ctx context.Context, backendURL string) error {
	return m.PingFunc(ctx, backendURL)
}

// CreateCalls reports how many sessions were requested
func (m *MockBackend) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// Queries returns every streamed turn in order
func (m *MockBackend) Queries() []client.QueryConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.QueryConfig(nil), m.queries...)
}

// Emit sends events unless the turn was cancelled
func Emit(sink client.EventSink, cancel *client.Cancellation, events ...protocol.Event) {
	for _, ev := range events {
		if cancel.IsCancelled() {
			return
		}
		sink.HandleEvent(ev)
	}
}
