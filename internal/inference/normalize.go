package inference

import (
	"encoding/json"
	"strings"
)

// FallbackReply is used whenever no usable text can be extracted.
const FallbackReply = "Sorry, I could not generate a response."

// Normalize extracts reply text from a raw inference payload:
//
//	JSON string                          -> the string
//	object with string "response"        -> response
//	object with result.response          -> result.response (Workers AI REST envelope)
//	object with choices[0].message       -> its content (OpenAI-compatible servers)
//	non-JSON body                        -> the body as plain text
//	anything else                        -> not usable
//
// ok is false when the result is empty after trimming.
func Normalize(raw []byte) (text string, ok bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", false
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return trimmed, true
	}

	switch v := decoded.(type) {
	case string:
		text = v
	case map[string]any:
		text = textFromObject(v)
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func textFromObject(obj map[string]any) string {
	if s, ok := obj["response"].(string); ok {
		return s
	}
	if result, ok := obj["result"].(map[string]any); ok {
		if s, ok := result["response"].(string); ok {
			return s
		}
	}
	if choices, ok := obj["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if s, ok := msg["content"].(string); ok {
					return s
				}
			}
		}
	}
	return ""
}
