// Package jsonrecover extracts JSON values from free-form model output.
//
// Model responses that were asked for "JSON only" still arrive wrapped in
// markdown fences or surrounded by prose. Parse walks an ordered list of
// extraction attempts and returns the caller's fallback when none of them
// yields a value of the requested type. It never returns an error.
package jsonrecover

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
)

// Attempt is one step of the recovery chain. Extract returns the candidate
// text to decode and false when the step does not apply to raw.
type Attempt struct {
	Name    string
	Extract func(raw string) (string, bool)
}

// Result is the outcome of a single attempt, reported by Trace.
type Result struct {
	Attempt   string
	Candidate string
	Err       error
}

// OK reports whether the attempt decoded successfully.
func (r Result) OK() bool { return r.Err == nil }

var errNotApplicable = errors.New("no candidate")

var (
	arrayPattern  = regexp.MustCompile(`(?s)\[.*?\]`)
	objectPattern = regexp.MustCompile(`(?s)\{.*?\}`)
)

// DefaultAttempts is the recovery order: the interior of a fenced block, the
// whole trimmed text, then the first non-greedy array and finally the first
// non-greedy object. The scans run on
// the original text, not the fence-stripped one. Non-greedy matching misreads
// nested values; that trade-off favours responses with trailing commentary.
var DefaultAttempts = []Attempt{
	{Name: "fenced", Extract: extractFenced},
	{Name: "direct", Extract: extractDirect},
	{Name: "array-scan", Extract: scanPattern(arrayPattern)},
	{Name: "object-scan", Extract: scanPattern(objectPattern)},
}

// Parser carries the attempt chain and the logger used for failures.
type Parser struct {
	attempts []Attempt
	logger   *slog.Logger
}

// Option customizes a Parser.
type Option func(*Parser)

// WithLogger sets the logger used to report total failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithAttempts replaces the attempt chain.
func WithAttempts(attempts ...Attempt) Option {
	return func(p *Parser) {
		if len(attempts) > 0 {
			p.attempts = attempts
		}
	}
}

// New constructs a Parser using DefaultAttempts.
func New(opts ...Option) *Parser {
	p := &Parser{attempts: DefaultAttempts}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) log() *slog.Logger {
	if p == nil || p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

func (p *Parser) chain() []Attempt {
	if p == nil || len(p.attempts) == 0 {
		return DefaultAttempts
	}
	return p.attempts
}

// Parse decodes raw into a T using the default parser.
func Parse[T any](raw string, fallback T, label string) T {
	return ParseWith(nil, raw, fallback, label)
}

// ParseWith decodes raw into a T, returning fallback unchanged when every
// attempt fails. label identifies the caller in the failure log.
func ParseWith[T any](p *Parser, raw string, fallback T, label string) T {
	var firstErr error
	for _, attempt := range p.chain() {
		candidate, ok := attempt.Extract(raw)
		if !ok {
			continue
		}
		var out T
		err := json.Unmarshal([]byte(candidate), &out)
		if err == nil {
			return out
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errNotApplicable
	}
	if label == "" {
		label = "json recover"
	}
	p.log().Error("json recovery failed",
		"context", label,
		"error", firstErr,
		"snippet", Snippet(raw),
	)
	return fallback
}

// Trace runs every attempt against raw, decoding into a fresh T each time,
// and reports each outcome. It does not stop at the first
// success.
func Trace[T any](p *Parser, raw string) []Result {
	attempts := p.chain()
	results := make([]Result, 0, len(attempts))
	for _, attempt := range attempts {
		candidate, ok := attempt.Extract(raw)
		if !ok {
			results = append(results, Result{Attempt: attempt.Name, Err: errNotApplicable})
			continue
		}
		var out T
		err := json.Unmarshal([]byte(candidate), &out)
		results = append(results, Result{Attempt: attempt.Name, Candidate: candidate, Err: err})
	}
	return results
}

func extractFenced(raw string) (string, bool) {
	return StripFence(strings.TrimSpace(raw))
}

func extractDirect(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

func scanPattern(pattern *regexp.Regexp) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		match := pattern.FindString(raw)
		return match, match != ""
	}
}

// StripFence returns the interior of the first fenced code block in text.
// A fence is a run of three or more backticks, optionally followed by a
// language tag on the same line, closed by a run of the same length.
func StripFence(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start:]
	width := 0
	for width < len(rest) && rest[width] == '`' {
		width++
	}
	fence := rest[:width]
	body := rest[width:]

	// Skip the language tag; it ends at the first newline.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if isLanguageTag(tag) {
			body = body[nl+1:]
		}
	} else if tag := leadingTag(body); tag != "" {
		body = body[len(tag):]
	}

	end := strings.Index(body, fence)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

func isLanguageTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '+' || r == '_') {
			return false
		}
	}
	return true
}

func leadingTag(body string) string {
	for i, r := range body {
		if r == ' ' || r == '\t' || r == '{' || r == '[' {
			if isLanguageTag(body[:i]) {
				return body[:i]
			}
			return ""
		}
	}
	return ""
}

// Snippet compacts text for log output.
func Snippet(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
