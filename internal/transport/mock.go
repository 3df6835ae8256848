package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hospitalzapata/wardsync/internal/models"
)

// MockGateway provides a mock implementation for testing.
type MockGateway struct {
	mu sync.Mutex

	// Response configuration keyed by "METHOD path"
	Responses map[string]interface{}

	// Error injection
	Errors      map[string]error
	GlobalError error

	// Request tracking
	Requests []Request

	// State
	token  string
	closed bool
}

// Request tracks a single request made against the mock.
type Request struct {
	Method  string
	Path    string
	Payload interface{}
}

// NewMockGateway creates a mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Responses: make(map[string]interface{}),
		Errors:    make(map[string]error),
		Requests:  []Request{},
	}
}

// Get mocks HTTP GET.
func (m *MockGateway) Get(ctx context.Context, path string) (*models.Envelope, error) {
	return m.handle("GET", path, nil)
}

// Post mocks HTTP POST.
func (m *MockGateway) Post(ctx context.Context, path string, payload interface{}) (*models.Envelope, error) {
	return m.handle("POST", path, payload)
}

// Put mocks HTTP PUT.
func (m *MockGateway) Put(ctx context.Context, path string, payload interface{}) (*models.Envelope, error) {
	return m.handle("PUT", path, payload)
}

// Patch mocks HTTP PATCH.
func (m *MockGateway) Patch(ctx context.Context, path string, payload interface{}) (*models.Envelope, error) {
	return m.handle("PATCH", path, payload)
}

// Delete mocks HTTP DELETE.
func (m *MockGateway) Delete(ctx context.Context, path string) (*models.Envelope, error) {
	return m.handle("DELETE", path, nil)
}

// SetToken mocks token setting.
func (m *MockGateway) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// GetToken returns the current token.
func (m *MockGateway) GetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Close mocks connection closing.
func (m *MockGateway) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockGateway) handle(method, path string, payload interface{}) (*models.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, Request{
		Method:  method,
		Path:    path,
		Payload: payload,
	})

	if m.GlobalError != nil {
		return nil, m.GlobalError
	}

	key := method + " " + path
	if err, ok := m.Errors[key]; ok {
		return nil, err
	}

	if resp, ok := m.Responses[key]; ok {
		body, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("marshal mock response: %w", err)
		}
		return models.ParseEnvelope(body)
	}

	return nil, fmt.Errorf("no mock response for %s", key)
}

// Helper methods for test setup

// AddResponse registers a response for a method and path.
func (m *MockGateway) AddResponse(method, path string, response interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[method+" "+path] = response
}

// AddError registers an error for a method and path.
func (m *MockGateway) AddError(method, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method+" "+path] = err
}

// SetGlobalError makes every request fail with err. Passing nil
// clears it.
func (m *MockGateway) SetGlobalError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GlobalError = err
}

// RequestCount returns how many requests matched a method and path.
func (m *MockGateway) RequestCount(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.Requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockGateway) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	r := m.Requests[len(m.Requests)-1]
	return &r
}

// Reset clears tracked requests and injected errors.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = []Request{}
	m.Errors = make(map[string]error)
	m.GlobalError = nil
}
