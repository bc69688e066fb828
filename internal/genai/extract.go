package genai

import (
	"encoding/json"
	"strings"
)

// The generative API's response shape varies across versions and proxies.
// Instead of speculative key probing, each known shape gets its own decoder;
// ExtractReply tries them in priority order and stringifies the raw body as
// the last resort, so a reply of some form always comes back.

// ExtractReply pulls the reply text out of a generateContent response body.
func ExtractReply(raw []byte) string {
	if s, ok := flatText(raw); ok {
		return s
	}
	if s, ok := candidateText(raw); ok {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// flatText handles bodies carrying the reply in a top-level field:
// {"reply": "..."} or {"text": "..."}.
func flatText(raw []byte) (string, bool) {
	var body struct {
		Reply string `json:"reply"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	if body.Reply != "" {
		return body.Reply, true
	}
	if body.Text != "" {
		return body.Text, true
	}
	return "", false
}

// candidateText handles the structured shape: the first candidate's first
// non-empty content part.
func candidateText(raw []byte) (string, bool) {
	var body struct {
		Candidates []struct {
			Content struct {
				Parts []Part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	for _, cand := range body.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, true
			}
		}
	}
	return "", false
}
