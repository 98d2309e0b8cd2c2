package studypath

import "context"

// MockCompleter is a test double for the generation gateway. Responses are
// consumed in order; once exhausted the last entry repeats. A non-nil Err
// fails every call.
type MockCompleter struct {
	Responses []string
	Err       error
	Prompts   []string // every prompt received, in call order
	next      int
}

// NewMockCompleter creates a MockCompleter that cycles through responses.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

func (m *MockCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	resp := m.Responses[min(m.next, len(m.Responses)-1)]
	m.next++
	return resp, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
