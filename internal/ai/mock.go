package ai

import "context"

// mockClient stands in for the commentary provider in tests and local runs
// without an API key. Output is deterministic.
type mockClient struct{}

func NewMock() Client {
	return &mockClient{}
}

func (m *mockClient) Commentary(_ context.Context, _ string) (string, error) {
	return "Sentiment is neutral with modest volume. Majors are consolidating after the recent move; " +
		"expect a range-bound 24h with a slight upward bias if volume holds.", nil
}
