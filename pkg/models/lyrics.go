package models

import (
	"encoding/json"
	"time"
)

// WeakSpot is a passage of the lyrics the model flagged for improvement.
// StartIndex and EndIndex are byte offsets into the analysed lyrics such that
// lyrics[StartIndex:EndIndex] == Text. Both are -1 when the passage could not
// be located in the lyrics.
type WeakSpot struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	StartIndex  int    `json:"startIndex"`
	EndIndex    int    `json:"endIndex"`
}

// Anchored reports whether the weak spot points at a real range of the lyrics.
func (w WeakSpot) Anchored() bool {
	return w.StartIndex >= 0 && w.EndIndex > w.StartIndex
}

// UnmarshalJSON accepts both the structured object form and a bare string,
// which older prompts and some model responses still produce.
func (w *WeakSpot) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*w = WeakSpot{Text: text, StartIndex: -1, EndIndex: -1}
		return nil
	}
	type plain WeakSpot
	p := plain{StartIndex: -1, EndIndex: -1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*w = WeakSpot(p)
	return nil
}

// ArtistList is a list of artist names plus the sources used to find them.
type ArtistList struct {
	Artists      []string      `json:"artists"`
	Attributions []Attribution `json:"attributions,omitempty"`
}

// ComprehensiveAnalysis is the combined genre, critique and artist result
// produced by a single analysis call.
type ComprehensiveAnalysis struct {
	Genre        string     `json:"genre"`
	WeakSpots    []WeakSpot `json:"weakSpots"`
	TopArtists   ArtistList `json:"topArtists"`
	RankedGenres []string   `json:"rankedGenres"`
}

// WeakSpotTexts returns the flagged passages as plain strings.
func (c ComprehensiveAnalysis) WeakSpotTexts() []string {
	out := make([]string, 0, len(c.WeakSpots))
	for _, w := range c.WeakSpots {
		if w.Description != "" && w.Text != "" {
			out = append(out, w.Text+" ("+w.Description+")")
			continue
		}
		out = append(out, w.Text)
	}
	return out
}

// ArtistAnalysis is a short description of an artist's lyric writing style.
type ArtistAnalysis struct {
	Artist       string        `json:"artist"`
	Analysis     string        `json:"analysis"`
	Attributions []Attribution `json:"attributions,omitempty"`
}

// CompleteAnalysis is a comprehensive analysis plus a style analysis of each
// suggested artist.
type CompleteAnalysis struct {
	ComprehensiveAnalysis
	ArtistAnalyses []ArtistAnalysis `json:"artistAnalyses"`
}

// ArtistStyleAnalysis describes an artist for style transfer.
type ArtistStyleAnalysis struct {
	Genre        string        `json:"genre"`
	Analysis     string        `json:"analysis"`
	Attributions []Attribution `json:"attributions,omitempty"`
}

// AnalysisResults bundles the outputs of a full lyric pipeline run.
type AnalysisResults struct {
	Genre               string           `json:"genre"`
	WeakSpots           []WeakSpot       `json:"weakSpots"`
	RankedGenres        []string         `json:"rankedGenres,omitempty"`
	TopArtists          []ArtistAnalysis `json:"topArtists"`
	ArtistAttributions  []Attribution    `json:"artistSearchAttributions,omitempty"`
	ImprovedLyrics      string           `json:"improvedLyrics"`
	SunoFormattedLyrics string           `json:"sunoFormattedLyrics"`
	StyleOfMusic        string           `json:"styleOfMusic"`
}

// SavedSession is a user-named snapshot of lyrics plus prior results.
type SavedSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Lyrics    string    `json:"lyrics"`
	CreatedAt time.Time `json:"created_at"`

	Analysis             *AnalysisResults     `json:"analysisResults,omitempty"`
	ArtistStyle          *ArtistStyleAnalysis `json:"artistAnalysisResult,omitempty"`
	ArtistName           string               `json:"artistNameForAnalysis,omitempty"`
	AdjustedByArtist     string               `json:"adjustedLyricsByArtist,omitempty"`
	SunoFormattedArtist  string               `json:"sunoFormattedArtistLyrics,omitempty"`
	AdjustedByGenre      string               `json:"adjustedLyricsByGenre,omitempty"`
	SelectedGenre        string               `json:"selectedGenreForAdjustment,omitempty"`
	SelectedArtist       string               `json:"selectedArtistForAdjustment,omitempty"`
}
