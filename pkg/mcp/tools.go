package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/models"
)

// Tool argument structs.

type lyricsArgs struct {
	Lyrics   string `json:"lyrics"`
	Complete bool   `json:"complete"`
}

type genreArgs struct {
	Genre string `json:"genre"`
}

type lyricsGenreArgs struct {
	Lyrics string `json:"lyrics"`
	Genre  string `json:"genre"`
}

type artistsArgs struct {
	Artists []string `json:"artists"`
	Genre   string   `json:"genre"`
}

type artistArgs struct {
	Artist string `json:"artist"`
}

type improveArgs struct {
	Lyrics      string   `json:"lyrics"`
	WeakSpots   []string `json:"weak_spots"`
	Genre       string   `json:"genre"`
	ArtistNotes []string `json:"artist_notes"`
}

type adjustArgs struct {
	Lyrics         string `json:"lyrics"`
	Genre          string `json:"genre"`
	Artist         string `json:"artist"`
	ArtistAnalysis string `json:"artist_analysis"`
}

type suggestionsArgs struct {
	Lyrics   string          `json:"lyrics"`
	WeakSpot models.WeakSpot `json:"weak_spot"`
}

type usageArgs struct {
	Since string `json:"since"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"versewright_analyze":         handleAnalyze,
	"versewright_pipeline":        handlePipeline,
	"versewright_top_artists":     handleTopArtists,
	"versewright_artist_analyses": handleArtistAnalyses,
	"versewright_similar_artists": handleSimilarArtists,
	"versewright_artist_style":    handleArtistStyle,
	"versewright_improve":         handleImprove,
	"versewright_format":          handleFormat,
	"versewright_style":           handleStyle,
	"versewright_adjust":          handleAdjust,
	"versewright_suggestions":     handleSuggestions,
	"versewright_cache_stats":     handleCacheStats,
	"versewright_cache_clear":     handleCacheClear,
	"versewright_usage":           handleUsage,
}

func stringProp(desc string) Schema {
	return Schema{Type: "string", Description: desc}
}

func arrayProp(desc string) Schema {
	return Schema{Type: "array", Description: desc, Items: &Schema{Type: "string"}}
}

func objectSchema(required []string, props map[string]Schema) Schema {
	if props == nil {
		props = map[string]Schema{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

var (
	lyricsProp = stringProp("The song lyrics")
	genreProp  = stringProp("Target genre, e.g. Synthwave")
)

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "versewright_analyze",
		Description: "Detect the genre, weak spots, ranked genres and top artists of a lyric sheet. Set complete to also analyze each top artist.",
		InputSchema: objectSchema([]string{"lyrics"}, map[string]Schema{
			"lyrics":   lyricsProp,
			"complete": {Type: "boolean", Description: "Also run per-artist analyses (optional)"},
		}),
	},
	{
		Name:        "versewright_pipeline",
		Description: "Run the full flow: analysis, artist research, rewrite, Suno formatting and style description.",
		InputSchema: objectSchema([]string{"lyrics"}, map[string]Schema{"lyrics": lyricsProp}),
	},
	{
		Name:        "versewright_top_artists",
		Description: "List the most influential current artists in a genre, with web sources.",
		InputSchema: objectSchema([]string{"genre"}, map[string]Schema{"genre": genreProp}),
	},
	{
		Name:        "versewright_artist_analyses",
		Description: "Briefly analyze each named artist's style within a genre.",
		InputSchema: objectSchema([]string{"artists", "genre"}, map[string]Schema{
			"artists": arrayProp("Artist names"),
			"genre":   genreProp,
		}),
	},
	{
		Name:        "versewright_similar_artists",
		Description: "Find artists whose lyrics resemble the given lyrics.",
		InputSchema: objectSchema([]string{"lyrics", "genre"}, map[string]Schema{
			"lyrics": lyricsProp,
			"genre":  genreProp,
		}),
	},
	{
		Name:        "versewright_artist_style",
		Description: "Research one artist's genre and lyrical style. Results are kept in the durable cache.",
		InputSchema: objectSchema([]string{"artist"}, map[string]Schema{"artist": stringProp("Artist name")}),
	},
	{
		Name:        "versewright_improve",
		Description: "Rewrite lyrics for a genre, addressing weak spots and artist notes.",
		InputSchema: objectSchema([]string{"lyrics", "genre"}, map[string]Schema{
			"lyrics":       lyricsProp,
			"genre":        genreProp,
			"weak_spots":   arrayProp("Passages to fix (optional)"),
			"artist_notes": arrayProp("Artist style notes, first three are used (optional)"),
		}),
	},
	{
		Name:        "versewright_format",
		Description: "Format lyrics with Suno.ai structure tags.",
		InputSchema: objectSchema([]string{"lyrics", "genre"}, map[string]Schema{
			"lyrics": lyricsProp,
			"genre":  genreProp,
		}),
	},
	{
		Name:        "versewright_style",
		Description: "Write a short Suno \"Style of Music\" description for a genre.",
		InputSchema: objectSchema([]string{"genre"}, map[string]Schema{"genre": genreProp}),
	},
	{
		Name:        "versewright_adjust",
		Description: "Rewrite lyrics in the style of a specific artist.",
		InputSchema: objectSchema([]string{"lyrics", "genre", "artist"}, map[string]Schema{
			"lyrics":          lyricsProp,
			"genre":           genreProp,
			"artist":          stringProp("Artist to imitate"),
			"artist_analysis": stringProp("Known notes on the artist's style (optional)"),
		}),
	},
	{
		Name:        "versewright_suggestions",
		Description: "Propose alternative lines for one weak spot. Never cached.",
		InputSchema: objectSchema([]string{"lyrics", "weak_spot"}, map[string]Schema{
			"lyrics":    lyricsProp,
			"weak_spot": {
				Type:        "object",
				Description: "Weak spot as returned by versewright_analyze",
				Properties: map[string]Schema{
					"text":        {Type: "string"},
					"description": {Type: "string"},
					"startIndex":  {Type: "integer"},
					"endIndex":    {Type: "integer"},
				},
			},
		}),
	},
	{
		Name:        "versewright_cache_stats",
		Description: "Show cache statistics per tier (entries, hits, misses, hit rate).",
		InputSchema: objectSchema(nil, nil),
	},
	{
		Name:        "versewright_cache_clear",
		Description: "Drop every cached result in all tiers.",
		InputSchema: objectSchema(nil, nil),
	},
	{
		Name:        "versewright_usage",
		Description: "Show Gemini usage per operation and model.",
		InputSchema: objectSchema(nil, map[string]Schema{
			"since": stringProp("Look-back window such as 24h or 168h (optional, defaults to 24h)"),
		}),
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: textContent(text)}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: textContent(text), IsError: true}
}

func jsonResult(v any) ToolCallResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding result: " + err.Error())
	}
	return textResult(string(data))
}

func operationResult(v any, err error) ToolCallResult {
	if err != nil {
		return errorResult(lyrics.UserMessage(err))
	}
	if text, ok := v.(string); ok {
		return textResult(text)
	}
	return jsonResult(v)
}

// call decodes args into A and runs fn.
func call[A any](ctx context.Context, raw json.RawMessage, fn func(context.Context, A) (any, error)) ToolCallResult {
	var args A
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	return operationResult(fn(ctx, args))
}

func handleAnalyze(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a lyricsArgs) (any, error) {
		if a.Complete {
			return s.svc.CompleteAnalysis(ctx, a.Lyrics)
		}
		return s.svc.ComprehensiveAnalysis(ctx, a.Lyrics)
	})
}

func handlePipeline(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a lyricsArgs) (any, error) {
		return s.svc.Pipeline(ctx, a.Lyrics)
	})
}

func handleTopArtists(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a genreArgs) (any, error) {
		return s.svc.TopArtists(ctx, a.Genre)
	})
}

func handleArtistAnalyses(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a artistsArgs) (any, error) {
		return s.svc.ArtistAnalyses(ctx, a.Artists, a.Genre)
	})
}

func handleSimilarArtists(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a lyricsGenreArgs) (any, error) {
		return s.svc.SimilarArtists(ctx, a.Lyrics, a.Genre)
	})
}

func handleArtistStyle(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a artistArgs) (any, error) {
		return s.svc.ArtistStyle(ctx, a.Artist)
	})
}

func handleImprove(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a improveArgs) (any, error) {
		return s.svc.ImprovedLyrics(ctx, a.Lyrics, a.WeakSpots, a.Genre, a.ArtistNotes)
	})
}

func handleFormat(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a lyricsGenreArgs) (any, error) {
		return s.svc.SunoFormattedLyrics(ctx, a.Lyrics, a.Genre)
	})
}

func handleStyle(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a genreArgs) (any, error) {
		return s.svc.StyleOfMusic(ctx, a.Genre)
	})
}

func handleAdjust(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a adjustArgs) (any, error) {
		return s.svc.AdjustLyrics(ctx, a.Lyrics, a.Genre, a.Artist, a.ArtistAnalysis)
	})
}

func handleSuggestions(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	return call(ctx, raw, func(ctx context.Context, a suggestionsArgs) (any, error) {
		items, err := s.svc.ImprovementSuggestions(ctx, a.Lyrics, a.WeakSpot)
		if err != nil {
			return nil, err
		}
		return formatList(items), nil
	})
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	stats, err := s.svc.CacheStats()
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	if len(stats) == 0 {
		return textResult("Cache is not configured.")
	}
	return textResult(formatCacheStats(stats))
}

func handleCacheClear(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if err := s.svc.ClearCache(ctx); err != nil {
		return errorResult("Error clearing cache: " + err.Error())
	}
	return textResult("Cache cleared.")
}

func handleUsage(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.usage == nil {
		return textResult("Usage tracking is not configured.")
	}
	var args usageArgs
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	window := 24 * time.Hour
	if args.Since != "" {
		d, err := time.ParseDuration(args.Since)
		if err != nil || d <= 0 {
			return errorResult("Invalid since (use a duration such as 24h)")
		}
		window = d
	}
	rows, err := s.usage.Summary(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatSummary(rows))
}
