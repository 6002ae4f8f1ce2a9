package mocks

import (
	"context"

	"github.com/gamma-omg/profile-mcp/llm"
	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

var _ llm.Provider = (*MockProvider)(nil)

func (m *MockProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

// LastHistory returns the history passed to the most recent Chat call.
func (m *MockProvider) LastHistory() []llm.Message {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "Chat" {
			return m.Calls[i].Arguments.Get(1).([]llm.Message)
		}
	}

	return nil
}
