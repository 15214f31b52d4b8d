package lyrics

import (
	"context"

	"github.com/versewright/versewright/pkg/models"
)

// CompleteAnalysis runs the comprehensive analysis and then analyzes each
// suggested artist.
func (s *Service) CompleteAnalysis(ctx context.Context, lyrics string) (models.CompleteAnalysis, error) {
	comp, err := s.ComprehensiveAnalysis(ctx, lyrics)
	if err != nil {
		return models.CompleteAnalysis{}, err
	}
	analyses, err := s.ArtistAnalyses(ctx, comp.TopArtists.Artists, comp.Genre)
	if err != nil {
		return models.CompleteAnalysis{}, err
	}
	return models.CompleteAnalysis{ComprehensiveAnalysis: comp, ArtistAnalyses: analyses}, nil
}

// Pipeline runs the full flow: analysis, artist research, improvement, Suno
// formatting and the style description.
func (s *Service) Pipeline(ctx context.Context, lyrics string) (models.AnalysisResults, error) {
	complete, err := s.CompleteAnalysis(ctx, lyrics)
	if err != nil {
		return models.AnalysisResults{}, err
	}

	notes := make([]string, 0, len(complete.ArtistAnalyses))
	for _, a := range complete.ArtistAnalyses {
		if a.Analysis != "" {
			notes = append(notes, a.Artist+": "+a.Analysis)
		}
	}

	improved, err := s.ImprovedLyrics(ctx, lyrics, complete.WeakSpotTexts(), complete.Genre, notes)
	if err != nil {
		return models.AnalysisResults{}, err
	}
	source := improved
	if source == "" {
		s.logger.Warn("improved lyrics empty; formatting original", "operation", OpSunoFormat)
		source = lyrics
	}

	formatted, err := s.SunoFormattedLyrics(ctx, source, complete.Genre)
	if err != nil {
		return models.AnalysisResults{}, err
	}
	style, err := s.StyleOfMusic(ctx, complete.Genre)
	if err != nil {
		return models.AnalysisResults{}, err
	}

	return models.AnalysisResults{
		Genre:               complete.Genre,
		WeakSpots:           complete.WeakSpots,
		RankedGenres:        complete.RankedGenres,
		TopArtists:          complete.ArtistAnalyses,
		ArtistAttributions:  complete.TopArtists.Attributions,
		ImprovedLyrics:      improved,
		SunoFormattedLyrics: formatted,
		StyleOfMusic:        style,
	}, nil
}
