package generator

import "context"

// MockLLM returns scripted responses in order, for tests and dry runs.
type MockLLM struct {
	Responses []string
	Err       error
	Prompts   []Prompt // records what was asked
	next      int
}

func (m *MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	if m.next >= len(m.Responses) {
		return m.Responses[len(m.Responses)-1], nil
	}
	resp := m.Responses[m.next]
	m.next++
	return resp, nil
}
