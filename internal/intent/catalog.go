package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidCatalog is wrapped by every catalog load failure: missing file,
// malformed JSON, a record without a tag, or a duplicate tag.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Intent is a named cluster of trigger patterns sharing candidate responses.
type Intent struct {
	Tag       string
	Patterns  []string
	Responses []string
}

// Entry is one indexed pattern: the normalized form, the owning intent's tag,
// and the pattern's position within that intent's pattern list.
type Entry struct {
	Pattern      string
	Tag          string
	PatternIndex int

	intent int // index into Catalog.intents
}

// Catalog is the loaded, indexed pattern collection. It is built once at
// startup and read-only afterwards; concurrent readers need no locking.
type Catalog struct {
	intents     []Intent
	entries     []Entry
	fallbackTag string
}

// catalogFile mirrors the knowledge source JSON. Patterns and responses are
// decoded leniently so that non-string elements can be skipped rather than
// failing the whole load.
type catalogFile struct {
	Intents []struct {
		Tag       string            `json:"tag"`
		Patterns  []json.RawMessage `json:"patterns"`
		Responses []json.RawMessage `json:"responses"`
	} `json:"intents"`
}

// Load reads and indexes the catalog at path. The fallback tag (may be empty)
// marks a catch-all intent that the matcher skips, since matching it would
// defeat the purpose of falling through to the generative collaborator.
func Load(path, fallbackTag string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrInvalidCatalog, path, err)
	}
	defer f.Close()
	return Parse(f, fallbackTag)
}

// Parse decodes and indexes a catalog from r.
func Parse(r io.Reader, fallbackTag string) (*Catalog, error) {
	var file catalogFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrInvalidCatalog, err)
	}
	if file.Intents == nil {
		return nil, fmt.Errorf("%w: no intents collection", ErrInvalidCatalog)
	}

	c := &Catalog{fallbackTag: fallbackTag}
	seen := make(map[string]struct{}, len(file.Intents))
	for i, rec := range file.Intents {
		if rec.Tag == "" {
			return nil, fmt.Errorf("%w: intent record %d has no tag", ErrInvalidCatalog, i)
		}
		if _, dup := seen[rec.Tag]; dup {
			return nil, fmt.Errorf("%w: duplicate tag %q", ErrInvalidCatalog, rec.Tag)
		}
		seen[rec.Tag] = struct{}{}

		in := Intent{
			Tag:       rec.Tag,
			Patterns:  stringElements(rec.Patterns),
			Responses: stringElements(rec.Responses),
		}
		idx := len(c.intents)
		c.intents = append(c.intents, in)

		for pi, p := range in.Patterns {
			norm := Normalize(p)
			if norm == "" {
				// An empty normalized pattern would contain-match every
				// input, so it is unindexable.
				continue
			}
			c.entries = append(c.entries, Entry{
				Pattern:      norm,
				Tag:          in.Tag,
				PatternIndex: pi,
				intent:       idx,
			})
		}
	}
	return c, nil
}

// stringElements keeps the string members of a heterogeneous JSON array,
// silently dropping everything else. Decoding into a pointer distinguishes
// a JSON null, which unmarshals into a plain string without error, from a
// real string element.
func stringElements(raw []json.RawMessage) []string {
	var out []string
	for _, el := range raw {
		var s *string
		if err := json.Unmarshal(el, &s); err == nil && s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Entries returns the indexed (pattern, tag, pattern_index) triples in
// catalog order. Callers must treat the slice as read-only.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Intents returns all loaded intents in catalog order.
func (c *Catalog) Intents() []Intent {
	return c.intents
}

// Intent looks up an intent by tag.
func (c *Catalog) Intent(tag string) (Intent, bool) {
	for _, in := range c.intents {
		if in.Tag == tag {
			return in, true
		}
	}
	return Intent{}, false
}

// FallbackTag returns the designated catch-all tag, or "" if none is set.
func (c *Catalog) FallbackTag() string {
	return c.fallbackTag
}

func (c *Catalog) owner(e Entry) Intent {
	return c.intents[e.intent]
}
