package library

// Root is a directory the scanner walks for media.
type Root struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Title groups the files of one show or movie.
type Title struct {
	ID            string `json:"id"`
	RootID        string `json:"root_id"`
	Name          string `json:"name"`
	OriginalTitle string `json:"original_title,omitempty"`
	Year          int    `json:"year,omitempty"`
	Path          string `json:"path"`
	FileCount     int    `json:"file_count"`
}

// Sidecar is a subtitle file stored next to a media file.
type Sidecar struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"` // ISO 639-1 base code, empty when the name carries none
	Loadable bool   `json:"loadable"`           // the session can parse it directly
}

type Subtitles struct {
	Sidecars []Sidecar `json:"sidecars"`
	// Embedded lists the languages of text-based embedded tracks. It stays
	// empty unless the scanner probes media files.
	Embedded []string `json:"embedded,omitempty"`
	// SourceSidecars are loadable sidecars in the study language or with no
	// language in the name.
	SourceSidecars []string `json:"source_sidecars"`
	HasSourceTrack bool     `json:"has_source_track"`
	Languages      []string `json:"languages"`
}

// MediaFile is one playable file and the subtitles available for it.
type MediaFile struct {
	Path      string    `json:"path"`
	RootID    string    `json:"root_id"`
	TitleID   string    `json:"title_id"`
	Name      string    `json:"name"`
	Season    string    `json:"season,omitempty"`
	Subtitles Subtitles `json:"subtitles"`
	// Studyable reports whether source language subtitles exist, either as
	// a sidecar or an embedded text track.
	Studyable bool `json:"studyable"`
}

type Catalog struct {
	Roots  []RootSummary `json:"roots"`
	Titles []Title       `json:"titles"`
	Files  []MediaFile   `json:"files"`
}

type RootSummary struct {
	Root
	TitleCount int `json:"title_count"`
}
