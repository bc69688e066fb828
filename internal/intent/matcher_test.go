package intent

import (
	"math"
	"testing"
)

const greetingCatalog = `{"intents":[
	{"tag":"greeting","patterns":["hi","hello"],"responses":["Hey!","Hello!"]},
	{"tag":"farewell","patterns":["bye","goodbye"],"responses":["See you."]},
	{"tag":"thanks","patterns":["thank you"],"responses":["Any time."]}
]}`

func TestMatchEmptyInput(t *testing.T) {
	m := NewMatcher(parseTestCatalog(t, greetingCatalog, ""), 0)

	for _, text := range []string{"", "   ", "?!.,"} {
		got := m.Match(text)
		if got.Matched || got.Score != 0 {
			t.Errorf("Match(%q) = %+v, want non-match with score 0", text, got)
		}
	}
}

func TestMatchExact(t *testing.T) {
	m := NewMatcher(parseTestCatalog(t, greetingCatalog, ""), 0)

	got := m.Match("Hello!")
	if !got.Matched || got.Tag != "greeting" {
		t.Fatalf("Match(\"Hello!\") = %+v, want greeting match", got)
	}
	if got.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", got.Score)
	}
	if got.PatternIndex != 1 {
		t.Errorf("PatternIndex = %d, want 1", got.PatternIndex)
	}
}

// TestMatchExactBeatsSubstring: with both "hello" and "hello there" in the
// catalog, input "hello" must take the exact match even when the substring
// candidate comes first in catalog order.
func TestMatchExactBeatsSubstring(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"long","patterns":["hello there"],"responses":["General Kenobi."]},
		{"tag":"short","patterns":["hello"],"responses":["Hi."]}
	]}`, "")
	m := NewMatcher(c, 0)

	got := m.Match("hello")
	if got.Tag != "short" {
		t.Errorf("Match(\"hello\").Tag = %q, want %q", got.Tag, "short")
	}
	if got.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", got.Score)
	}
}

// TestMatchExactTieCatalogOrder: identical patterns in two intents resolve to
// the one listed first.
func TestMatchExactTieCatalogOrder(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"first","patterns":["ping"],"responses":["pong one"]},
		{"tag":"second","patterns":["ping"],"responses":["pong two"]}
	]}`, "")
	m := NewMatcher(c, 0)

	if got := m.Match("ping"); got.Tag != "first" {
		t.Errorf("Match(\"ping\").Tag = %q, want %q", got.Tag, "first")
	}
}

func TestMatchSubstring(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"help","patterns":["help"],"responses":["How can I help?"]},
		{"tag":"doors","patterns":["open the pod bay doors"],"responses":["I am afraid I cannot do that."]}
	]}`, "")
	m := NewMatcher(c, 0)

	// Pattern contained in the user text.
	got := m.Match("I really need some help right now")
	if !got.Matched || got.Tag != "help" {
		t.Errorf("pattern-in-text: got %+v, want help match", got)
	}

	// User text contained in a pattern.
	got = m.Match("open the pod")
	if !got.Matched || got.Tag != "doors" {
		t.Errorf("text-in-pattern: got %+v, want doors match", got)
	}
}

// TestMatchCutoffBoundary: a best similarity exactly at the cutoff is a
// match; strictly below falls through.
func TestMatchCutoffBoundary(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"target","patterns":["abcxy"],"responses":["got it"]}
	]}`, "")
	m := NewMatcher(c, 0.60)

	// "abczz" vs "abcxy": matching run "abc" of 3 over total length 10 = 0.60.
	if r := Ratio("abczz", "abcxy"); math.Abs(r-0.60) > 1e-9 {
		t.Fatalf("Ratio(abczz, abcxy) = %v, want 0.60", r)
	}
	got := m.Match("abczz")
	if !got.Matched || got.Tag != "target" {
		t.Errorf("Match at cutoff = %+v, want target match", got)
	}
	if math.Abs(got.Score-0.60) > 1e-9 {
		t.Errorf("Score = %v, want 0.60", got.Score)
	}

	// "abzzz" vs "abcxy": run of 2 over 10 = 0.40 < cutoff.
	if got := m.Match("abzzz"); got.Matched {
		t.Errorf("Match below cutoff = %+v, want non-match", got)
	}
}

// TestMatchFuzzyTieFirstSeen: two patterns with the same best score resolve
// to the one seen first in catalog order.
func TestMatchFuzzyTieFirstSeen(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"alpha","patterns":["abcxy"],"responses":["a"]},
		{"tag":"beta","patterns":["abcyx"],"responses":["b"]}
	]}`, "")
	m := NewMatcher(c, 0.60)

	if got := m.Match("abczz"); got.Tag != "alpha" {
		t.Errorf("fuzzy tie Tag = %q, want %q", got.Tag, "alpha")
	}
}

func TestMatchNoCloseCandidate(t *testing.T) {
	m := NewMatcher(parseTestCatalog(t, greetingCatalog, ""), 0)

	got := m.Match("what's the weather in Tokyo tomorrow")
	if got.Matched {
		t.Errorf("Match = %+v, want non-match so the caller falls back to the model", got)
	}
}

// TestResponseIndexAlignment: matching the pattern at index 1 returns the
// response at index 1, never a random pick.
func TestResponseIndexAlignment(t *testing.T) {
	m := NewMatcher(parseTestCatalog(t, greetingCatalog, ""), 0)
	m.pick = func(n int) int {
		t.Fatal("random picker used despite aligned index")
		return 0
	}

	if got := m.Match("hello"); got.Response != "Hello!" {
		t.Errorf("Response = %q, want %q", got.Response, "Hello!")
	}
}

func TestResponseSoleFallback(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"farewell","patterns":["bye","goodbye"],"responses":["See you."]}
	]}`, "")
	m := NewMatcher(c, 0)

	// Pattern index 1 is out of range for a single response list.
	if got := m.Match("goodbye"); got.Response != "See you." {
		t.Errorf("Response = %q, want %q", got.Response, "See you.")
	}
}

func TestResponseRandomWhenUnaligned(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"joke","patterns":["a","b","tell me a joke"],"responses":["one","two"]}
	]}`, "")
	m := NewMatcher(c, 0)
	m.pick = func(n int) int {
		if n != 2 {
			t.Errorf("pick(n) called with n = %d, want 2", n)
		}
		return 1
	}

	if got := m.Match("tell me a joke"); got.Response != "two" {
		t.Errorf("Response = %q, want %q", got.Response, "two")
	}
}

// TestNullResponseNeverSurfaces: a JSON null in a responses array must not
// become a selectable empty-string answer; the remaining real response wins.
func TestNullResponseNeverSurfaces(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"greet","patterns":["hi","hello"],"responses":["Hey!",null]}
	]}`, "")
	m := NewMatcher(c, 0)

	got := m.Match("hello")
	if !got.Matched || got.Tag != "greet" {
		t.Fatalf("Match(\"hello\") = %+v, want greet match", got)
	}
	if got.Response != "Hey!" {
		t.Errorf("Response = %q, want %q", got.Response, "Hey!")
	}
}

// TestEmptyResponseIntentNeverSurfaces: an intent with patterns but no
// responses can match syntactically but must never be the final answer.
func TestEmptyResponseIntentNeverSurfaces(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"mute","patterns":["hello"],"responses":[]}
	]}`, "")
	m := NewMatcher(c, 0)

	if got := m.Match("hello"); got.Matched {
		t.Errorf("Match = %+v, want non-match for response-less intent", got)
	}
}

// TestEmptyResponseIntentFallsThrough: a later selectable intent still wins
// when an earlier exact candidate has no responses.
func TestEmptyResponseIntentFallsThrough(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"mute","patterns":["hello"],"responses":[]},
		{"tag":"loud","patterns":["hello"],"responses":["HELLO!"]}
	]}`, "")
	m := NewMatcher(c, 0)

	if got := m.Match("hello"); got.Tag != "loud" {
		t.Errorf("Tag = %q, want %q", got.Tag, "loud")
	}
}

func TestFallbackTagSkipped(t *testing.T) {
	c := parseTestCatalog(t, `{"intents":[
		{"tag":"unrecognized","patterns":["anything else"],"responses":["I did not get that."]}
	]}`, "unrecognized")
	m := NewMatcher(c, 0)

	if got := m.Match("anything else"); got.Matched {
		t.Errorf("Match = %+v, want non-match for the designated fallback tag", got)
	}
}
