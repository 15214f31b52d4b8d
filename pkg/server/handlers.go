package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/sessions"
)

type lyricsRequest struct {
	Lyrics string `json:"lyrics"`
}

type genreRequest struct {
	Genre string `json:"genre"`
}

type lyricsGenreRequest struct {
	Lyrics string `json:"lyrics"`
	Genre  string `json:"genre"`
}

type artistsRequest struct {
	Artists []string `json:"artists"`
	Genre   string   `json:"genre"`
}

type artistRequest struct {
	Artist string `json:"artist"`
}

type improveRequest struct {
	Lyrics      string   `json:"lyrics"`
	WeakSpots   []string `json:"weakSpots"`
	Genre       string   `json:"genre"`
	ArtistNotes []string `json:"artistNotes"`
}

type adjustRequest struct {
	Lyrics         string `json:"lyrics"`
	Genre          string `json:"genre"`
	Artist         string `json:"artist"`
	ArtistAnalysis string `json:"artistAnalysis"`
}

type suggestionsRequest struct {
	Lyrics   string          `json:"lyrics"`
	WeakSpot models.WeakSpot `json:"weakSpot"`
}

type applyRequest struct {
	Lyrics      string          `json:"lyrics"`
	WeakSpot    models.WeakSpot `json:"weakSpot"`
	Replacement string          `json:"replacement"`
}

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Text string `json:"text"`
}

type listResponse struct {
	Items []string `json:"items"`
}

func (s *Server) analyze(ctx context.Context, req lyricsRequest) (models.ComprehensiveAnalysis, error) {
	return s.svc.ComprehensiveAnalysis(ctx, req.Lyrics)
}

func (s *Server) completeAnalysis(ctx context.Context, req lyricsRequest) (models.CompleteAnalysis, error) {
	return s.svc.CompleteAnalysis(ctx, req.Lyrics)
}

func (s *Server) pipeline(ctx context.Context, req lyricsRequest) (models.AnalysisResults, error) {
	return s.svc.Pipeline(ctx, req.Lyrics)
}

func (s *Server) artistAnalyses(ctx context.Context, req artistsRequest) ([]models.ArtistAnalysis, error) {
	return s.svc.ArtistAnalyses(ctx, req.Artists, req.Genre)
}

func (s *Server) topArtists(ctx context.Context, req genreRequest) (models.ArtistList, error) {
	return s.svc.TopArtists(ctx, req.Genre)
}

func (s *Server) similarArtists(ctx context.Context, req lyricsGenreRequest) (listResponse, error) {
	items, err := s.svc.SimilarArtists(ctx, req.Lyrics, req.Genre)
	return listResponse{Items: nonNil(items)}, err
}

func (s *Server) artistStyle(ctx context.Context, req artistRequest) (models.ArtistStyleAnalysis, error) {
	return s.svc.ArtistStyle(ctx, req.Artist)
}

func (s *Server) improve(ctx context.Context, req improveRequest) (textResponse, error) {
	text, err := s.svc.ImprovedLyrics(ctx, req.Lyrics, req.WeakSpots, req.Genre, req.ArtistNotes)
	return textResponse{Text: text}, err
}

func (s *Server) format(ctx context.Context, req lyricsGenreRequest) (textResponse, error) {
	text, err := s.svc.SunoFormattedLyrics(ctx, req.Lyrics, req.Genre)
	return textResponse{Text: text}, err
}

func (s *Server) style(ctx context.Context, req genreRequest) (textResponse, error) {
	text, err := s.svc.StyleOfMusic(ctx, req.Genre)
	return textResponse{Text: text}, err
}

func (s *Server) adjust(ctx context.Context, req adjustRequest) (textResponse, error) {
	text, err := s.svc.AdjustLyrics(ctx, req.Lyrics, req.Genre, req.Artist, req.ArtistAnalysis)
	return textResponse{Text: text}, err
}

func (s *Server) suggestions(ctx context.Context, req suggestionsRequest) (listResponse, error) {
	items, err := s.svc.ImprovementSuggestions(ctx, req.Lyrics, req.WeakSpot)
	return listResponse{Items: nonNil(items)}, err
}

func (s *Server) apply(_ context.Context, req applyRequest) (textResponse, error) {
	text, err := lyrics.ApplySuggestion(req.Lyrics, req.WeakSpot, req.Replacement)
	return textResponse{Text: text}, err
}

func (s *Server) stripTags(_ context.Context, req textRequest) (textResponse, error) {
	return textResponse{Text: lyrics.StripTags(req.Text)}, nil
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.CacheStats()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if stats == nil {
		stats = []models.CacheStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCache(r.Context()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLimiterReset(w http.ResponseWriter, _ *http.Request) {
	s.svc.ResetLimiter()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "since must be a positive duration such as 24h")
			return
		}
		window = d
	}
	summaries, err := s.usage.Summary(r.Context(), time.Now().UTC().Add(-window))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if summaries == nil {
		summaries = []models.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if list == nil {
		list = []models.SavedSession{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	var sess models.SavedSession
	if err := decodeBody(w, r, &sess); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	id, err := s.sessions.Save(r.Context(), sess)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
