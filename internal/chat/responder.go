package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akorchak/intentd/internal/genai"
	"github.com/akorchak/intentd/internal/intent"
	"github.com/akorchak/intentd/internal/storage"
)

// Reply sources.
const (
	SourceKB    = "kb"
	SourceAI    = "ai"
	SourceError = "error"
)

const apologyReply = "Sorry, I couldn't reach the assistant right now. Please try again later."

// Generator is the external collaborator contract: given a conversation,
// return text or an error.
type Generator interface {
	GenerateContent(ctx context.Context, contents []genai.Content) (string, error)
}

// Recorder appends interaction records for observability.
type Recorder interface {
	SaveInteraction(storage.Interaction) error
}

// Result is the dispatcher outcome returned to the HTTP layer. Intent and
// Score are only set for knowledge-base replies; Err carries the diagnostic
// message when Source is "error".
type Result struct {
	Reply  string   `json:"reply"`
	Source string   `json:"source"`
	Intent *string  `json:"intent"`
	Score  *float64 `json:"score"`
	Err    string   `json:"error,omitempty"`
}

// Responder orchestrates one chat turn: try the intent matcher against the
// shared catalog, fall back to the generative collaborator, and append every
// outcome to the interaction log.
type Responder struct {
	matcher *intent.Matcher
	gen     Generator // nil when no API credential is configured
	store   Recorder  // nil disables recording
	logger  *slog.Logger
}

// NewResponder wires the dispatcher. gen may be nil (the fallback path then
// degrades to an error reply); store may be nil (recording disabled).
func NewResponder(m *intent.Matcher, gen Generator, store Recorder) *Responder {
	return &Responder{matcher: m, gen: gen, store: store, logger: slog.Default()}
}

// Respond handles one request. It never returns an error: collaborator and
// persistence failures are folded into the Result per the error taxonomy.
func (r *Responder) Respond(ctx context.Context, req Request) Result {
	question := req.Utterance()
	res := r.respond(ctx, req, question)
	r.record(question, res)
	return res
}

func (r *Responder) respond(ctx context.Context, req Request, question string) Result {
	if m := r.matcher.Match(question); m.Matched {
		return Result{
			Reply:  m.Response,
			Source: SourceKB,
			Intent: &m.Tag,
			Score:  &m.Score,
		}
	}

	if r.gen == nil {
		return Result{
			Reply:  apologyReply,
			Source: SourceError,
			Err:    "generative model not configured: missing API key",
		}
	}

	turns := req.Turns()
	if len(turns) == 0 {
		turns = []genai.Content{genai.UserTurn(question)}
	}

	reply, err := r.gen.GenerateContent(ctx, turns)
	if err != nil {
		r.logger.Error("generative fallback failed", "error", err)
		return Result{Reply: apologyReply, Source: SourceError, Err: err.Error()}
	}

	return Result{Reply: reply, Source: SourceAI}
}

// record appends the outcome to the interaction log. Persistence errors are
// logged once here and never surface to the caller.
func (r *Responder) record(question string, res Result) {
	if r.store == nil {
		return
	}
	rec := storage.Interaction{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Question:  question,
		Answer:    res.Reply,
		Source:    res.Source,
		Score:     res.Score,
	}
	if res.Intent != nil {
		rec.Intent = *res.Intent
	}
	if err := r.store.SaveInteraction(rec); err != nil {
		r.logger.Warn("failed to record interaction", "error", err)
	}
}
