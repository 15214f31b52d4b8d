package lyrics

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/versewright/versewright/pkg/cache"
	"github.com/versewright/versewright/pkg/gemini"
	"github.com/versewright/versewright/pkg/jsonrecover"
	"github.com/versewright/versewright/pkg/models"
)

// Fallback values used when a structured response cannot be recovered.
const (
	UnknownGenre          = "Unknown genre"
	UnknownArtistGenre    = "Unknown"
	ArtistAnalysisFailed  = "Analysis failed."
	adjustTemperature     = 0.7
	suggestionTemperature = 0.9
)

type comprehensivePayload struct {
	Genre        string            `json:"genre"`
	WeakSpots    []models.WeakSpot `json:"weakSpots"`
	TopArtists   []string          `json:"topArtists"`
	RankedGenres []string          `json:"rankedGenres"`
}

// ComprehensiveAnalysis classifies the genre, flags weak spots, suggests top
// artists and ranks alternative genres in a single grounded call.
func (s *Service) ComprehensiveAnalysis(ctx context.Context, lyrics string) (models.ComprehensiveAnalysis, error) {
	if strings.TrimSpace(lyrics) == "" {
		return models.ComprehensiveAnalysis{}, invalidInput("lyrics are empty")
	}
	key := cache.Key(OpComprehensive, lyrics)
	return memoize(ctx, s, OpComprehensive, key, func(ctx context.Context) (models.ComprehensiveAnalysis, error) {
		resp, err := s.generate(ctx, OpComprehensive, gemini.Request{
			SystemInstruction: analysisPersona + "\n\n" + jsonOnly,
			Prompt:            comprehensivePrompt(lyrics),
			ResponseMIMEType:  gemini.MIMEJSON,
			GoogleSearch:      true,
		})
		if err != nil {
			return models.ComprehensiveAnalysis{}, err
		}

		payload := jsonrecover.ParseWith(s.parser, resp.Text, comprehensivePayload{Genre: UnknownGenre}, "comprehensive analysis")
		genre := strings.TrimSpace(payload.Genre)
		if genre == "" {
			genre = UnknownGenre
		}
		return models.ComprehensiveAnalysis{
			Genre:     genre,
			WeakSpots: anchorWeakSpots(lyrics, payload.WeakSpots),
			TopArtists: models.ArtistList{
				Artists:      cleanNames(payload.TopArtists),
				Attributions: normalizeAttributions(resp.GroundingChunks),
			},
			RankedGenres: cleanNames(payload.RankedGenres),
		}, nil
	})
}

// Genre returns the main genre from the comprehensive analysis.
func (s *Service) Genre(ctx context.Context, lyrics string) (string, error) {
	a, err := s.ComprehensiveAnalysis(ctx, lyrics)
	return a.Genre, err
}

// WeakSpots returns the flagged passages from the comprehensive analysis.
func (s *Service) WeakSpots(ctx context.Context, lyrics string) ([]models.WeakSpot, error) {
	a, err := s.ComprehensiveAnalysis(ctx, lyrics)
	return a.WeakSpots, err
}

// RankedGenres returns the ranked genre list from the comprehensive analysis.
func (s *Service) RankedGenres(ctx context.Context, lyrics string) ([]string, error) {
	a, err := s.ComprehensiveAnalysis(ctx, lyrics)
	return a.RankedGenres, err
}

// ArtistAnalysis describes one artist's lyric style within genre.
func (s *Service) ArtistAnalysis(ctx context.Context, artist, genre string) (models.ArtistAnalysis, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return models.ArtistAnalysis{}, invalidInput("artist name is empty")
	}
	key := cache.Key(OpArtistAnalysis, strings.ToLower(artist), strings.ToLower(strings.TrimSpace(genre)))
	return memoize(ctx, s, OpArtistAnalysis, key, func(ctx context.Context) (models.ArtistAnalysis, error) {
		resp, err := s.generate(ctx, OpArtistAnalysis, gemini.Request{
			SystemInstruction: compactPersona,
			Prompt:            artistAnalysisPrompt(artist, genre),
			GoogleSearch:      true,
		})
		if err != nil {
			return models.ArtistAnalysis{}, err
		}
		return models.ArtistAnalysis{
			Artist:       artist,
			Analysis:     strings.TrimSpace(resp.Text),
			Attributions: normalizeAttributions(resp.GroundingChunks),
		}, nil
	})
}

// ArtistAnalyses analyzes each artist in names. Results keep the order of
// names. An artist whose analysis fails gets ArtistAnalysisFailed in its
// entry; only cancellation aborts the batch.
func (s *Service) ArtistAnalyses(ctx context.Context, names []string, genre string) ([]models.ArtistAnalysis, error) {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, invalidInput("artist name is empty")
		}
	}
	out := make([]models.ArtistAnalysis, len(names))

	if !s.fanOut {
		for i, n := range names {
			a, err := s.artistAnalysisOrPlaceholder(ctx, n, genre)
			if err != nil {
				return nil, err
			}
			out[i] = a
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range names {
		g.Go(func() error {
			a, err := s.artistAnalysisOrPlaceholder(gctx, n, genre)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) artistAnalysisOrPlaceholder(ctx context.Context, artist, genre string) (models.ArtistAnalysis, error) {
	a, err := s.ArtistAnalysis(ctx, artist, genre)
	if err == nil {
		return a, nil
	}
	if Kind(err) == KindCanceled {
		return models.ArtistAnalysis{}, err
	}
	s.logger.Warn("artist analysis failed",
		"operation", OpArtistAnalysis,
		"artist", artist,
		"error", err,
	)
	return models.ArtistAnalysis{Artist: artist, Analysis: ArtistAnalysisFailed}, nil
}

// ImprovedLyrics rewrites lyrics for genre, addressing weakSpots and drawing
// on up to three artistNotes.
func (s *Service) ImprovedLyrics(ctx context.Context, lyrics string, weakSpots []string, genre string, artistNotes []string) (string, error) {
	if strings.TrimSpace(lyrics) == "" {
		return "", invalidInput("lyrics are empty")
	}
	if strings.TrimSpace(genre) == "" {
		return "", invalidInput("genre is empty")
	}
	notes := artistNotes
	if len(notes) > improvedArtistNotes {
		notes = notes[:improvedArtistNotes]
	}
	key := cache.Key(OpImprove, lyrics, genre, strings.Join(weakSpots, "\x1f"), strings.Join(notes, "\x1f"))
	return memoize(ctx, s, OpImprove, key, func(ctx context.Context) (string, error) {
		resp, err := s.generate(ctx, OpImprove, gemini.Request{
			SystemInstruction: improvementPersona,
			Prompt:            improvedLyricsPrompt(lyrics, weakSpots, genre, notes),
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Text), nil
	})
}

// SunoFormattedLyrics adds Suno.ai meta tags to lyrics. The result never
// exceeds SunoMaxRunes runes.
func (s *Service) SunoFormattedLyrics(ctx context.Context, lyrics, genre string) (string, error) {
	if strings.TrimSpace(lyrics) == "" {
		return "", invalidInput("lyrics are empty")
	}
	if strings.TrimSpace(genre) == "" {
		return "", invalidInput("genre is empty")
	}
	key := cache.Key(OpSunoFormat, lyrics, genre)
	return memoize(ctx, s, OpSunoFormat, key, func(ctx context.Context) (string, error) {
		resp, err := s.generate(ctx, OpSunoFormat, gemini.Request{
			SystemInstruction: sunoPersona,
			Prompt:            sunoFormatPrompt(lyrics, genre),
		})
		if err != nil {
			return "", err
		}
		return CapRunes(strings.TrimSpace(resp.Text), SunoMaxRunes, SunoTruncationMarker), nil
	})
}

// StyleOfMusic writes a Suno.ai style description for genre, at most
// StyleMaxRunes runes.
func (s *Service) StyleOfMusic(ctx context.Context, genre string) (string, error) {
	if strings.TrimSpace(genre) == "" {
		return "", invalidInput("genre is empty")
	}
	key := cache.Key(OpStyleOfMusic, strings.ToLower(strings.TrimSpace(genre)))
	return memoize(ctx, s, OpStyleOfMusic, key, func(ctx context.Context) (string, error) {
		resp, err := s.generate(ctx, OpStyleOfMusic, gemini.Request{
			SystemInstruction: compactPersona,
			Prompt:            styleOfMusicPrompt(genre),
		})
		if err != nil {
			return "", err
		}
		style := strings.Trim(strings.TrimSpace(resp.Text), `"`)
		return CapRunes(style, StyleMaxRunes, StyleEllipsis), nil
	})
}

// TopArtists lists leading artists of genre using web search.
func (s *Service) TopArtists(ctx context.Context, genre string) (models.ArtistList, error) {
	if strings.TrimSpace(genre) == "" {
		return models.ArtistList{}, invalidInput("genre is empty")
	}
	key := cache.Key(OpTopArtists, strings.ToLower(strings.TrimSpace(genre)))
	return memoize(ctx, s, OpTopArtists, key, func(ctx context.Context) (models.ArtistList, error) {
		resp, err := s.generate(ctx, OpTopArtists, gemini.Request{
			SystemInstruction: compactPersona,
			Prompt:            topArtistsPrompt(genre),
			GoogleSearch:      true,
		})
		if err != nil {
			return models.ArtistList{}, err
		}
		names := jsonrecover.ParseWith(s.parser, resp.Text, []string{}, "top artists")
		return models.ArtistList{
			Artists:      cleanNames(names),
			Attributions: normalizeAttributions(resp.GroundingChunks),
		}, nil
	})
}

// SimilarArtists suggests artists whose style resembles lyrics within genre.
func (s *Service) SimilarArtists(ctx context.Context, lyrics, genre string) ([]string, error) {
	if strings.TrimSpace(lyrics) == "" {
		return nil, invalidInput("lyrics are empty")
	}
	if strings.TrimSpace(genre) == "" {
		return nil, invalidInput("genre is empty")
	}
	key := cache.Key(OpSimilarArtists, strings.ToLower(strings.TrimSpace(genre)), lyrics)
	return memoize(ctx, s, OpSimilarArtists, key, func(ctx context.Context) ([]string, error) {
		resp, err := s.generate(ctx, OpSimilarArtists, gemini.Request{
			SystemInstruction: compactPersona,
			Prompt:            similarArtistsPrompt(lyrics, genre),
			ResponseMIMEType:  gemini.MIMEJSON,
		})
		if err != nil {
			return nil, err
		}
		return cleanNames(jsonrecover.ParseWith(s.parser, resp.Text, []string{}, "similar artists")), nil
	})
}

// AdjustLyrics rewrites lyrics for genre, optionally in the style of artist.
// artistAnalysis, when given, describes that style.
func (s *Service) AdjustLyrics(ctx context.Context, lyrics, genre, artist, artistAnalysis string) (string, error) {
	if strings.TrimSpace(lyrics) == "" {
		return "", invalidInput("lyrics are empty")
	}
	if strings.TrimSpace(genre) == "" {
		return "", invalidInput("genre is empty")
	}
	artist = strings.TrimSpace(artist)
	key := cache.Key(OpAdjust, genre, artist, artistAnalysis, lyrics)
	return memoize(ctx, s, OpAdjust, key, func(ctx context.Context) (string, error) {
		temp := adjustTemperature
		resp, err := s.generate(ctx, OpAdjust, gemini.Request{
			SystemInstruction: improvementPersona,
			Prompt:            adjustLyricsPrompt(lyrics, genre, artist, artistAnalysis),
			Temperature:       &temp,
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Text), nil
	})
}

// ArtistStyle analyzes an artist for style transfer. Results are kept in the
// durable cache tier as well as in memory.
func (s *Service) ArtistStyle(ctx context.Context, artist string) (models.ArtistStyleAnalysis, error) {
	id := SanitizeID(artist)
	if id == "" {
		return models.ArtistStyleAnalysis{}, invalidInput("artist name is empty")
	}
	key := OpArtistStyle + ":" + id
	return memoize(ctx, s, OpArtistStyle, key, func(ctx context.Context) (models.ArtistStyleAnalysis, error) {
		resp, err := s.generate(ctx, OpArtistStyle, gemini.Request{
			SystemInstruction: analysisPersona,
			Prompt:            artistStylePrompt(strings.TrimSpace(artist)),
			GoogleSearch:      true,
		})
		if err != nil {
			return models.ArtistStyleAnalysis{}, err
		}
		result := jsonrecover.ParseWith(s.parser, resp.Text, models.ArtistStyleAnalysis{
			Genre:    UnknownArtistGenre,
			Analysis: ArtistAnalysisFailed,
		}, "artist style")
		result.Genre = strings.TrimSpace(result.Genre)
		result.Analysis = strings.TrimSpace(result.Analysis)
		result.Attributions = normalizeAttributions(resp.GroundingChunks)
		return result, nil
	})
}

// ImprovementSuggestions proposes replacements for one weak spot. It is never
// cached so repeated requests yield fresh alternatives.
func (s *Service) ImprovementSuggestions(ctx context.Context, lyrics string, spot models.WeakSpot) ([]string, error) {
	if strings.TrimSpace(lyrics) == "" {
		return nil, invalidInput("lyrics are empty")
	}
	if strings.TrimSpace(spot.Text) == "" {
		return nil, invalidInput("weak spot text is empty")
	}
	key := cache.Key(OpSuggestions, lyrics, spot.Text)
	return memoize(ctx, s, OpSuggestions, key, func(ctx context.Context) ([]string, error) {
		temp := suggestionTemperature
		resp, err := s.generate(ctx, OpSuggestions, gemini.Request{
			SystemInstruction: improvementPersona + "\n\n" + jsonOnly,
			Prompt:            suggestionsPrompt(lyrics, spot.Text, spot.Description),
			ResponseMIMEType:  gemini.MIMEJSON,
			Temperature:       &temp,
		})
		if err != nil {
			return nil, err
		}
		return cleanNames(jsonrecover.ParseWith(s.parser, resp.Text, []string{}, "improvement suggestions")), nil
	})
}
