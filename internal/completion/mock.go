package completion

import "context"

// MockCompleter returns a canned answer, recording the prompts it saw.
// Used by tests and the offline demo path.
type MockCompleter struct {
	Answer     string
	Err        error
	Calls      int
	LastSystem string
	LastPrompt string
}

// Complete records the prompts and returns the configured answer or error.
func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.Calls++
	m.LastSystem = systemPrompt
	m.LastPrompt = userPrompt
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer == "" {
		return "No answer configured.", nil
	}
	return m.Answer, nil
}

// Close is a no-op.
func (m *MockCompleter) Close() error {
	return nil
}
