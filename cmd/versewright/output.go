package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/models"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderError turns operation failures into the user-facing message.
func renderError(err error, colorize bool) string {
	msg := "Error: " + err.Error()
	switch lyrics.Kind(err) {
	case lyrics.KindGeneric, lyrics.KindNone:
	default:
		msg = "Error: " + lyrics.UserMessage(err)
	}
	if colorize {
		return ansiRed + msg + ansiReset
	}
	return msg
}

func renderHeading(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAttributions(w io.Writer, attrs []models.Attribution) {
	if len(attrs) == 0 {
		return
	}
	fmt.Fprintln(w, "Sources:")
	for _, a := range attrs {
		label := a.Title
		if label == "" {
			label = a.URI
		}
		if a.URI != "" && a.URI != label {
			fmt.Fprintf(w, "  - %s <%s>\n", label, a.URI)
		} else {
			fmt.Fprintf(w, "  - %s\n", label)
		}
	}
}

func printAnalysis(w io.Writer, a models.ComprehensiveAnalysis, colorize bool) {
	fmt.Fprintln(w, renderHeading("Genre", colorize))
	fmt.Fprintln(w, a.Genre)
	if len(a.RankedGenres) > 0 {
		fmt.Fprintf(w, "Also fits: %s\n", strings.Join(a.RankedGenres, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, renderHeading("Weak spots", colorize))
	if len(a.WeakSpots) == 0 {
		fmt.Fprintln(w, "None found.")
	} else {
		rows := make([][]string, 0, len(a.WeakSpots))
		for i, ws := range a.WeakSpots {
			pos := "-"
			if ws.Anchored() {
				pos = fmt.Sprintf("%d-%d", ws.StartIndex, ws.EndIndex)
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), ws.Text, ws.Description, pos})
		}
		fmt.Fprintln(w, renderTable([]string{"#", "Passage", "Issue", "Bytes"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, renderHeading("Top artists", colorize))
	if len(a.TopArtists.Artists) == 0 {
		fmt.Fprintln(w, "None found.")
	} else {
		fmt.Fprintln(w, strings.Join(a.TopArtists.Artists, ", "))
	}
	printAttributions(w, a.TopArtists.Attributions)
}

func printArtistAnalyses(w io.Writer, analyses []models.ArtistAnalysis, colorize bool) {
	fmt.Fprintln(w, renderHeading("Artist analyses", colorize))
	if len(analyses) == 0 {
		fmt.Fprintln(w, "None.")
		return
	}
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		rows = append(rows, []string{a.Artist, a.Analysis})
	}
	fmt.Fprintln(w, renderTable([]string{"Artist", "Analysis"}, rows, nil))
	for _, a := range analyses {
		printAttributions(w, a.Attributions)
	}
}

func printResults(w io.Writer, r models.AnalysisResults, colorize bool) {
	printAnalysis(w, models.ComprehensiveAnalysis{
		Genre:        r.Genre,
		WeakSpots:    r.WeakSpots,
		RankedGenres: r.RankedGenres,
		TopArtists:   models.ArtistList{Artists: artistNames(r.TopArtists), Attributions: r.ArtistAttributions},
	}, colorize)
	fmt.Fprintln(w)
	printArtistAnalyses(w, r.TopArtists, colorize)
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderHeading("Improved lyrics", colorize))
	fmt.Fprintln(w, r.ImprovedLyrics)
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderHeading("Suno lyrics", colorize))
	fmt.Fprintln(w, r.SunoFormattedLyrics)
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderHeading("Style of music", colorize))
	fmt.Fprintln(w, r.StyleOfMusic)
}

func artistNames(analyses []models.ArtistAnalysis) []string {
	names := make([]string, 0, len(analyses))
	for _, a := range analyses {
		names = append(names, a.Artist)
	}
	return names
}

func warnf(w io.Writer, colorize bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if colorize {
		msg = ansiYellow + msg + ansiReset
	}
	fmt.Fprintln(w, msg)
}
