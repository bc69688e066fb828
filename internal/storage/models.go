package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// MaxInteractions caps the interaction log: once exceeded, the oldest records
// by insertion order are evicted.
const MaxInteractions = 200

// Interaction is one logged (question, answer) exchange. Intent is empty and
// Score nil for replies that did not come from the knowledge base.
type Interaction struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Source    string    `json:"source"`
	Intent    string    `json:"intent,omitempty"`
	Score     *float64  `json:"score,omitempty"`
}
