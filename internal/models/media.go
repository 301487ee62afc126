package models

import (
	"fmt"
	"strings"
)

// MediaType is one of the two disjoint AniList catalogs.
type MediaType string

const (
	MediaTypeAnime MediaType = "ANIME"
	MediaTypeManga MediaType = "MANGA"
)

// ParseMediaType accepts "anime" or "manga" in any case.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(MediaTypeAnime):
		return MediaTypeAnime, nil
	case string(MediaTypeManga):
		return MediaTypeManga, nil
	default:
		return "", fmt.Errorf("unknown media type %q (must be anime or manga)", s)
	}
}

// Other returns the opposite partition.
func (m MediaType) Other() MediaType {
	if m == MediaTypeAnime {
		return MediaTypeManga
	}
	return MediaTypeAnime
}

// Label returns the lowercase name used in CLI output.
func (m MediaType) Label() string {
	return strings.ToLower(string(m))
}

// Status is the list status of an entry.
type Status string

const (
	StatusCurrent   Status = "CURRENT"
	StatusPlanning  Status = "PLANNING"
	StatusCompleted Status = "COMPLETED"
	StatusDropped   Status = "DROPPED"
	StatusPaused    Status = "PAUSED"
	StatusRepeating Status = "REPEATING"
)

// Title holds the title variants AniList returns for a media. Any field may be empty.
type Title struct {
	Native        string `json:"native"`
	Romaji        string `json:"romaji"`
	English       string `json:"english"`
	UserPreferred string `json:"userPreferred"`
}

// NativeValue returns the native title with surrounding whitespace removed.
func (t Title) NativeValue() string {
	return strings.TrimSpace(t.Native)
}

// Display returns the best human-readable title, falling back through
// userPreferred, romaji, english and native.
func (t Title) Display() string {
	for _, s := range []string{t.UserPreferred, t.Romaji, t.English, t.Native} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Media is the catalog record a list entry points at.
type Media struct {
	ID    int       `json:"id"`
	Type  MediaType `json:"type"`
	Title Title     `json:"title"`
}

// Entry is one record on the viewer's list.
//
// Media may be nil when the service omits it.
type Entry struct {
	ID     int    `json:"id"`
	Status Status `json:"status"`
	Media  *Media `json:"media"`
}

// Type returns the entry's partition, or "" without media.
func (e Entry) Type() MediaType {
	if e.Media == nil {
		return ""
	}
	return e.Media.Type
}

// Title returns the entry's media title, or the zero Title without media.
func (e Entry) Title() Title {
	if e.Media == nil {
		return Title{}
	}
	return e.Media.Title
}

// Page is one fetched page of a partition. Index is zero-based.
type Page struct {
	Index   int
	Size    int
	HasMore bool
	Entries []Entry
}

// SearchCandidate is one result of a destination title search.
type SearchCandidate struct {
	ID    int       `json:"id"`
	Type  MediaType `json:"type"`
	Title Title     `json:"title"`
}

// SearchResult is a page of search candidates in service order.
type SearchResult struct {
	Total      int
	Candidates []SearchCandidate
}

// Viewer is the authenticated AniList user.
type Viewer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Direction is an ordered (source, destination) partition pair.
type Direction struct {
	Source      MediaType
	Destination MediaType
}

var (
	AnimeToManga = Direction{Source: MediaTypeAnime, Destination: MediaTypeManga}
	MangaToAnime = Direction{Source: MediaTypeManga, Destination: MediaTypeAnime}
)

// ParseDirection accepts anime-to-manga, manga-to-anime and the a2m/m2a shorthands.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anime-to-manga", "a2m":
		return AnimeToManga, nil
	case "manga-to-anime", "m2a":
		return MangaToAnime, nil
	default:
		return Direction{}, fmt.Errorf("unknown direction %q (must be anime-to-manga or manga-to-anime)", s)
	}
}

func (d Direction) String() string {
	return d.Source.Label() + "-to-" + d.Destination.Label()
}
