package gateway

import "github.com/antoniostano/wayfarer/internal/inference"

// SystemPrompt sets the travel-planner persona for every model call.
const SystemPrompt = `You are an expert AI travel planner. Help users plan amazing trips with:
- Detailed day-by-day itineraries
- Restaurant and accommodation recommendations
- Budget estimates
- Local tips and cultural insights
- Best times to visit

Format responses clearly with sections. Be enthusiastic and helpful!`

// HistoryEntry is one caller-supplied prior turn.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildPrompt assembles system instruction, the last window entries of the
// caller's history, and the current message. History entries are forwarded
// as the caller sent them; the stored log is not consulted.
func BuildPrompt(history []HistoryEntry, message string, window int) []inference.ChatMessage {
	if window < 0 {
		window = 0
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	out := make([]inference.ChatMessage, 0, len(history)+2)
	out = append(out, inference.ChatMessage{Role: "system", Content: SystemPrompt})
	for _, h := range history {
		out = append(out, inference.ChatMessage{Role: h.Role, Content: h.Content})
	}
	out = append(out, inference.ChatMessage{Role: "user", Content: message})
	return out
}
