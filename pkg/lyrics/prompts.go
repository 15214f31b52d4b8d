package lyrics

import (
	"fmt"
	"strings"
)

// Personas sent as system instructions.
const (
	corePersona = `You are a highly experienced, commercially successful lyricist and songwriter with a record of hits and critically acclaimed work across every genre. You master storytelling, metaphor, wordplay and fresh rhymes; you understand song structure (verse, pre-chorus, chorus, bridge, outro), phrasing and cadence so lines sing naturally. You know the conventions of pop, rock and metal, hip-hop, R&B and soul, country, folk and blues, jazz and funk, electronic music, film music, world music and indie, and any fusion of them. You answer as a confident working professional: precise terminology, practical and creative suggestions.`

	analysisPersona = corePersona + `

You are now acting as a critic and A&R analyst. Judge lyrics honestly: identify genre fit, clichés, forced rhymes, weak imagery and structural problems, and name comparable artists.`

	improvementPersona = corePersona + `

You are now rewriting lyrics. Keep the song's core meaning and emotional arc, fix the weak lines, tighten rhythm and rhyme, and return only the lyrics.`

	sunoPersona = corePersona + `

You are now preparing lyrics for the Suno.ai music generator. Use square-bracket meta tags such as [intro], [verse], [pre-chorus], [chorus], [bridge] and [outro] on their own lines. Never add commentary.`

	compactPersona = `You are an expert songwriter and music journalist. Answer briefly and precisely.`

	jsonOnly = "Return ONLY a valid JSON value with no other text."
)

const (
	similarArtistsExcerpt = 500
	improvedArtistNotes   = 3
)

func comprehensivePrompt(lyrics string) string {
	return fmt.Sprintf(`Analyze the following song lyrics comprehensively. Respond ONLY with a JSON object with these keys:
{
  "genre": "the main recommended genre (string)",
  "weakSpots": [{"text": "exact passage copied from the lyrics", "description": "what is wrong with it", "startIndex": 0, "endIndex": 0}],
  "topArtists": ["5 top artists of the main genre (array of strings)"],
  "rankedGenres": ["5-7 genres ordered from best fit (array of strings)"]
}
startIndex and endIndex are character offsets of "text" within the lyrics.

Lyrics:
%s`, lyrics)
}

func artistAnalysisPrompt(artist, genre string) string {
	return fmt.Sprintf(`Briefly analyze the lyric writing style of %q in the genre %q. At most 3 sentences. Focus on the defining traits of their lyrics.`, artist, genre)
}

func improvedLyricsPrompt(lyrics string, weakSpots []string, genre string, artistNotes []string) string {
	spots := strings.Join(weakSpots, ", ")
	if spots == "" {
		spots = "No specific weak spots"
	}
	if len(artistNotes) > improvedArtistNotes {
		artistNotes = artistNotes[:improvedArtistNotes]
	}
	return fmt.Sprintf(`Improve these lyrics for the genre %s:

ORIGINAL LYRICS:
%s

WEAK SPOTS: %s
STYLE: Draw on these styles: %s

Return ONLY the improved lyrics with no commentary.`, genre, lyrics, spots, strings.Join(artistNotes, "; "))
}

func sunoFormatPrompt(lyrics, genre string) string {
	return fmt.Sprintf(`Format for Suno.ai (genre: %s). At most %d characters.

TEMPLATE:
[intro]
[verse]
Verse lyrics...
[chorus]
Chorus lyrics...
[outro]

LYRICS TO FORMAT:
%s

Return ONLY the formatted lyrics with meta tags.`, genre, SunoMaxRunes, lyrics)
}

func styleOfMusicPrompt(genre string) string {
	return fmt.Sprintf(`Write a "Style of Music" description for Suno.ai (at most %d characters, in English).
Genre: %s
Example: "Upbeat pop rock with energetic drums"

Return ONLY the style description:`, StyleMaxRunes, genre)
}

func topArtistsPrompt(genre string) string {
	return fmt.Sprintf(`Top 5 artists of the genre %q. JSON array of names: ["Artist1", "Artist2", ...]`, genre)
}

func similarArtistsPrompt(lyrics, genre string) string {
	return fmt.Sprintf(`5 artists whose style is similar to these lyrics in the genre %q. JSON array: ["Artist1", "Artist2", ...]

Lyrics: %s...`, genre, truncateRunes(lyrics, similarArtistsExcerpt))
}

func adjustLyricsPrompt(lyrics, genre, artist, artistAnalysis string) string {
	var style string
	switch {
	case artist != "" && artistAnalysis != "":
		style = fmt.Sprintf("Style: %s (%s)", artist, artistAnalysis)
	case artist != "":
		style = "Style: " + artist
	}
	return fmt.Sprintf(`Rewrite the lyrics for the genre %q. %s

ORIGINAL:
%s

Return ONLY the rewritten lyrics:`, genre, style, lyrics)
}

func artistStylePrompt(artist string) string {
	return fmt.Sprintf(`Style analysis of the artist %q. JSON: {"genre": "genre", "analysis": "style analysis (5-7 sentences)"}`, artist)
}

func suggestionsPrompt(lyrics, passage, description string) string {
	reason := ""
	if description != "" {
		reason = "\nProblem: " + description
	}
	return fmt.Sprintf(`Suggest 3 alternative replacements for the weak passage below. Each alternative must fit the surrounding lyrics in meter and rhyme. JSON array of strings: ["...", "...", "..."]

Passage: %q%s

Full lyrics:
%s`, passage, reason, lyrics)
}
