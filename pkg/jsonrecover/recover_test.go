package jsonrecover

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

type sample struct {
	Genre  string   `json:"genre"`
	Spots  []string `json:"spots"`
	Rating int      `json:"rating"`
}

func quietParser(buf *bytes.Buffer) *Parser {
	return New(WithLogger(slog.New(slog.NewTextHandler(buf, nil))))
}

func TestParseRoundTrip(t *testing.T) {
	values := []any{
		sample{Genre: "folk", Spots: []string{"line one", "line two"}, Rating: 7},
		[]string{"Adele", "Hozier"},
		map[string]any{"a": float64(1), "b": []any{"x", true}},
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		switch want := v.(type) {
		case sample:
			got := Parse(string(data), sample{}, "test")
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %+v, want %+v", got, want)
			}
		case []string:
			got := Parse(string(data), []string(nil), "test")
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		case map[string]any:
			got := Parse(string(data), map[string]any(nil), "test")
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		}
	}
}

func TestParseFencedObject(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	got := Parse(raw, map[string]int{}, "fence")
	if len(got) != 1 || got["a"] != 1 {
		t.Fatalf("expected {a:1}, got %v", got)
	}
}

func TestParseFenceVariants(t *testing.T) {
	cases := map[string]string{
		"bare fence":       "```\n[\"x\"]\n```",
		"long fence":       "````json\n[\"x\"]\n````",
		"leading prose":    "Here you go:\n```json\n[\"x\"]\n```\nEnjoy.",
		"no newline":       "```json[\"x\"]```",
		"surrounding ws":   "\n\n  ```JSON\n[\"x\"]\n```  \n",
		"prose then array": "Sure! The artists are [\"x\"] as requested.",
	}
	for name, raw := range cases {
		got := Parse(raw, []string{"fallback"}, name)
		if len(got) != 1 || got[0] != "x" {
			t.Errorf("%s: expected [x], got %v", name, got)
		}
	}
}

func TestParseGarbageReturnsFallback(t *testing.T) {
	var logs bytes.Buffer
	p := quietParser(&logs)

	fallback := map[string]int{"x": 0}
	got := ParseWith(p, "not json at all", fallback, "garbage-test")
	if !reflect.DeepEqual(got, fallback) {
		t.Fatalf("expected fallback, got %v", got)
	}
	if !strings.Contains(logs.String(), "garbage-test") {
		t.Errorf("expected failure log to carry the context label, got %q", logs.String())
	}
}

func TestParseEmptyReturnsFallback(t *testing.T) {
	var logs bytes.Buffer
	got := ParseWith(quietParser(&logs), "   ", sample{Genre: "Unknown"}, "empty")
	if got.Genre != "Unknown" {
		t.Fatalf("expected fallback genre, got %q", got.Genre)
	}
}

func TestParseObjectScanAfterArrayFails(t *testing.T) {
	raw := `Analysis follows. {"genre": "punk", "rating": 3} Hope that helps [sic].`
	got := Parse(raw, sample{Genre: "fallback"}, "object")
	if got.Genre != "punk" || got.Rating != 3 {
		t.Fatalf("expected object scan to recover, got %+v", got)
	}
}

func TestParseNonGreedyLimitation(t *testing.T) {
	// Nested arrays are cut at the first closing bracket; the object scan
	// cannot help either, so the fallback wins.
	var logs bytes.Buffer
	raw := `Result: [["a", "b"], ["c"]] done`
	got := ParseWith(quietParser(&logs), raw, [][]string{{"fallback"}}, "nested")
	if len(got) != 1 || got[0][0] != "fallback" {
		t.Fatalf("expected fallback for nested prose-wrapped arrays, got %v", got)
	}
}

func TestTraceReportsEachAttempt(t *testing.T) {
	results := Trace[[]string](nil, "prefix [\"a\"] suffix")
	if len(results) != len(DefaultAttempts) {
		t.Fatalf("expected %d results, got %d", len(DefaultAttempts), len(results))
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Attempt] = r
	}
	if byName["fenced"].OK() {
		t.Error("fenced attempt should not apply")
	}
	if byName["direct"].OK() {
		t.Error("direct attempt should fail on prose")
	}
	if !byName["array-scan"].OK() || byName["array-scan"].Candidate != `["a"]` {
		t.Errorf("array scan should succeed, got %+v", byName["array-scan"])
	}
	if byName["object-scan"].OK() {
		t.Error("object scan should not apply")
	}
}

func TestWithAttemptsOverridesChain(t *testing.T) {
	var logs bytes.Buffer
	p := New(
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithAttempts(Attempt{Name: "direct", Extract: extractDirect}),
	)
	got := ParseWith(p, "say [1]", []int{9}, "custom")
	if len(got) != 1 || got[0] != 9 {
		t.Fatalf("expected fallback when scans are disabled, got %v", got)
	}
}

func TestStripFence(t *testing.T) {
	inner, ok := StripFence("```json\n{\"a\":1}\n```")
	if !ok || inner != `{"a":1}` {
		t.Fatalf("unexpected strip result %q %v", inner, ok)
	}
	if _, ok := StripFence("```json\n{\"a\":1}"); ok {
		t.Fatal("unterminated fence should not match")
	}
	if _, ok := StripFence(`{"a":1}`); ok {
		t.Fatal("plain text should not match")
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet(""); got != "<empty>" {
		t.Errorf("expected <empty>, got %q", got)
	}
	long := strings.Repeat("a ", 200)
	if got := Snippet(long); !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated snippet, got %q", got)
	}
}
