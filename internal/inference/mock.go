package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockAdapter returns deterministic replies for local runs and tests.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Mode() string { return "mock" }

func (a *MockAdapter) Run(ctx context.Context, req Request) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return json.Marshal(map[string]string{"response": buildMockReply(req)})
}

func buildMockReply(req Request) string {
	var last string
	earlier := 0
	for i, m := range req.Messages {
		switch {
		case m.Role == "system":
		case i == len(req.Messages)-1:
			last = strings.TrimSpace(m.Content)
		default:
			earlier++
		}
	}
	if last == "" {
		last = "somewhere new"
	}
	if earlier == 0 {
		return fmt.Sprintf("Let's plan it: %s", last)
	}
	return fmt.Sprintf("Let's plan it: %s\n(building on %d earlier messages)", last, earlier)
}
