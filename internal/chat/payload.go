package chat

import (
	"encoding/json"
	"strings"

	"github.com/akorchak/intentd/internal/genai"
)

// Request is the chat payload. Clients send one of three shapes: a list of
// sender-tagged messages, a list of generative-format content blocks, or a
// flat text/question field.
type Request struct {
	Messages []Message         `json:"messages,omitempty"`
	Contents []json.RawMessage `json:"contents,omitempty"`
	Text     string            `json:"text,omitempty"`
	Question string            `json:"question,omitempty"`
}

// Message is one sender-tagged chat turn as the frontend builds it.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// contentBlock is the lenient decoding of one contents element, which may be
// a {role, parts} turn or a bare {text} block.
type contentBlock struct {
	Role  string       `json:"role"`
	Parts []genai.Part `json:"parts"`
	Text  string       `json:"text"`
}

// Empty reports whether the payload carries no usable field at all.
func (r Request) Empty() bool {
	return len(r.Messages) == 0 && len(r.Contents) == 0 && r.Text == "" && r.Question == ""
}

// Utterance extracts the single representative user utterance to match
// against the catalog. Precedence: last "user"-tagged message (or the very
// last message when none is tagged user); then the last content block
// exposing text directly or through parts (stringifying the final block as a
// last resort); then the flat text or question field.
func (r Request) Utterance() string {
	if len(r.Messages) > 0 {
		for i := len(r.Messages) - 1; i >= 0; i-- {
			if strings.EqualFold(r.Messages[i].Sender, "user") {
				return r.Messages[i].Text
			}
		}
		return r.Messages[len(r.Messages)-1].Text
	}

	if len(r.Contents) > 0 {
		for i := len(r.Contents) - 1; i >= 0; i-- {
			var b contentBlock
			if err := json.Unmarshal(r.Contents[i], &b); err != nil {
				continue
			}
			if b.Text != "" {
				return b.Text
			}
			for _, p := range b.Parts {
				if p.Text != "" {
					return p.Text
				}
			}
		}
		return stringifyBlock(r.Contents[len(r.Contents)-1])
	}

	if r.Text != "" {
		return r.Text
	}
	return r.Question
}

// Turns builds the conversational payload for the generative collaborator,
// folding sender labels into its two-role vocabulary: "user" stays user,
// every other label (including the frontend's "bot") maps to model.
func (r Request) Turns() []genai.Content {
	if len(r.Messages) > 0 {
		out := make([]genai.Content, 0, len(r.Messages))
		for _, m := range r.Messages {
			out = append(out, genai.Content{
				Role:  foldRole(m.Sender),
				Parts: []genai.Part{{Text: m.Text}},
			})
		}
		return out
	}

	if len(r.Contents) > 0 {
		out := make([]genai.Content, 0, len(r.Contents))
		for _, raw := range r.Contents {
			var b contentBlock
			if err := json.Unmarshal(raw, &b); err != nil {
				out = append(out, genai.UserTurn(stringifyBlock(raw)))
				continue
			}
			switch {
			case b.Role != "" && len(b.Parts) > 0:
				out = append(out, genai.Content{Role: foldRole(b.Role), Parts: b.Parts})
			case b.Text != "":
				out = append(out, genai.UserTurn(b.Text))
			default:
				out = append(out, genai.UserTurn(stringifyBlock(raw)))
			}
		}
		return out
	}

	if r.Text != "" {
		return []genai.Content{genai.UserTurn(r.Text)}
	}
	if r.Question != "" {
		return []genai.Content{genai.UserTurn(r.Question)}
	}
	return nil
}

func foldRole(label string) string {
	if strings.EqualFold(label, "user") {
		return "user"
	}
	return "model"
}

// stringifyBlock renders an opaque contents element as text: a JSON string
// keeps its value, everything else keeps its raw encoding.
func stringifyBlock(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
