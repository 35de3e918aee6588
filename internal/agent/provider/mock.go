package provider

import (
	"context"
	"sync"
)

// MockProvider replays a scripted sequence of responses. Once the script
// is exhausted it keeps returning the last response, which lets tests
// model a backend that never stops requesting tools.
type MockProvider struct {
	mu        sync.Mutex
	script    []*Response
	errs      []error
	calls     int
	ModelName string

	// LastSystemPrompt and LastMessages capture the most recent request
	// for assertions.
	LastSystemPrompt string
	LastMessages     []Message
	LastTools        []ToolDefinition
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider builds a provider that replays responses in order.
func NewMockProvider(responses ...*Response) *MockProvider {
	return &MockProvider{script: responses, ModelName: "mock-model"}
}

// FailWith queues an error before the scripted responses are served.
func (m *MockProvider) FailWith(errs ...error) *MockProvider {
	m.errs = append(m.errs, errs...)
	return m
}

// Chat implements Provider.Chat.
func (m *MockProvider) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err, "mock chat")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastSystemPrompt = systemPrompt
	m.LastMessages = append([]Message(nil), messages...)
	m.LastTools = append([]ToolDefinition(nil), tools...)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}

	if len(m.script) == 0 {
		return &Response{StopReason: StopReasonEndTurn}, nil
	}

	idx := m.calls
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.calls++
	return m.script[idx], nil
}

// Calls reports how many Chat invocations succeeded or consumed an error.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name implements Provider.Name.
func (m *MockProvider) Name() string { return "mock" }

// Model implements Provider.Model.
func (m *MockProvider) Model() string { return m.ModelName }
