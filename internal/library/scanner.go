package library

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/internal/media"
	"golang.org/x/text/language"
)

// TrackLister reports the embedded subtitle tracks of a media file.
type TrackLister func(ctx context.Context, mediaPath string) ([]media.Track, error)

type scannerOptions struct {
	trackLister TrackLister
	cacheTTL    time.Duration
}

type Option func(*scannerOptions)

// WithTrackLister makes Scan probe every media file for embedded tracks.
func WithTrackLister(lister TrackLister) Option {
	return func(o *scannerOptions) {
		o.trackLister = lister
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *scannerOptions) {
		o.cacheTTL = ttl
	}
}

type scanCache struct {
	version uint64
	scanned time.Time
	catalog *Catalog
}

// Scanner builds a Catalog of the media under its roots. Results are cached
// for the TTL or until the study language changes.
type Scanner struct {
	roots       []Root
	trackLister TrackLister

	mu             sync.RWMutex
	sourceLanguage language.Tag
	cacheTTL       time.Duration
	cache          *scanCache
	version        uint64
}

func NewScanner(roots []Root, sourceLanguage language.Tag, opts ...Option) *Scanner {
	options := scannerOptions{
		cacheTTL: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Scanner{
		roots:          roots,
		sourceLanguage: sourceLanguage,
		trackLister:    options.trackLister,
		cacheTTL:       options.cacheTTL,
	}
}

// RootsFromDirs names each directory after its base name.
func RootsFromDirs(dirs []string) []Root {
	roots := make([]Root, 0, len(dirs))
	for _, dir := range dirs {
		dir = filepath.Clean(strings.TrimSpace(dir))
		if dir == "." || dir == "" {
			continue
		}
		roots = append(roots, Root{ID: dir, Name: filepath.Base(dir), Path: dir})
	}
	return roots
}

func (s *Scanner) SourceLanguage() language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceLanguage
}

func (s *Scanner) SetSourceLanguage(tag language.Tag) {
	s.mu.Lock()
	if s.sourceLanguage != tag {
		s.sourceLanguage = tag
		s.cache = nil
		s.version++
	}
	s.mu.Unlock()
}

func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.version++
	s.mu.Unlock()
}

func (s *Scanner) Scan(ctx context.Context) (*Catalog, error) {
	s.mu.RLock()
	version := s.version
	if s.cache != nil && s.cache.version == version && (s.cacheTTL <= 0 || time.Since(s.cache.scanned) < s.cacheTTL) {
		cached := cloneCatalog(s.cache.catalog)
		s.mu.RUnlock()
		return cached, nil
	}
	roots := append([]Root(nil), s.roots...)
	source := s.sourceLanguage
	s.mu.RUnlock()

	ret := &Catalog{
		Roots:  make([]RootSummary, 0, len(roots)),
		Titles: make([]Title, 0),
		Files:  make([]MediaFile, 0),
	}

	for _, root := range roots {
		if root.Path == "" {
			continue
		}
		if _, err := os.Stat(root.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		titleIdx := make(map[string]int)
		mediaFiles, err := findMediaFiles(root.Path)
		if err != nil {
			return nil, err
		}
		for _, mediaPath := range mediaFiles {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			titlePath := resolveTitlePath(root.Path, mediaPath)
			idx, ok := titleIdx[titlePath]
			if !ok {
				ret.Titles = append(ret.Titles, newTitle(root, titlePath))
				idx = len(ret.Titles) - 1
				titleIdx[titlePath] = idx
			}

			file, err := s.describe(ctx, mediaPath, source)
			if err != nil {
				return nil, err
			}
			file.RootID = root.ID
			file.TitleID = ret.Titles[idx].ID
			file.Season = resolveSeasonName(titlePath, mediaPath)
			ret.Files = append(ret.Files, file)
			ret.Titles[idx].FileCount++
		}

		ret.Roots = append(ret.Roots, RootSummary{Root: root, TitleCount: len(titleIdx)})
	}

	s.mu.Lock()
	if s.version == version {
		s.cache = &scanCache{version: version, scanned: time.Now(), catalog: cloneCatalog(ret)}
	}
	s.mu.Unlock()

	return ret, nil
}

func (s *Scanner) describe(ctx context.Context, mediaPath string, source language.Tag) (MediaFile, error) {
	baseName := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	sidecars, err := findSidecars(filepath.Dir(mediaPath), baseName)
	if err != nil {
		return MediaFile{}, err
	}

	subs := Subtitles{
		Sidecars:       sidecars,
		SourceSidecars: make([]string, 0),
		Languages:      make([]string, 0),
	}
	seen := make(map[string]bool)
	addLanguage := func(lang string) {
		if lang != "" && !seen[lang] {
			seen[lang] = true
			subs.Languages = append(subs.Languages, lang)
		}
	}

	for _, sc := range sidecars {
		addLanguage(sc.Language)
		if sc.Loadable && (sc.Language == "" || matchesLanguage(sc.Language, source)) {
			subs.SourceSidecars = append(subs.SourceSidecars, sc.Path)
		}
	}

	if s.trackLister != nil {
		tracks, err := s.trackLister(ctx, mediaPath)
		if err != nil && ctx.Err() != nil {
			return MediaFile{}, ctx.Err()
		}
		// an unreadable file simply has no embedded tracks
		for _, t := range tracks {
			if !t.TextBased() {
				continue
			}
			lang := normalizeLangCode(t.Language)
			if lang != "" {
				subs.Embedded = append(subs.Embedded, lang)
				addLanguage(lang)
			}
			if matchesLanguage(lang, source) {
				subs.HasSourceTrack = true
			}
		}
	}

	return MediaFile{
		Path:      mediaPath,
		Name:      displayName(baseName),
		Subtitles: subs,
		Studyable: len(subs.SourceSidecars) > 0 || subs.HasSourceTrack,
	}, nil
}

// resolveTitlePath walks from the media file's directory up toward rootPath
// looking for a tvshow.nfo. Without one the first directory below rootPath
// is the title.
func resolveTitlePath(rootPath, mediaPath string) string {
	dir := filepath.Dir(mediaPath)
	for dir != rootPath && strings.HasPrefix(dir, rootPath) {
		if _, err := os.Stat(filepath.Join(dir, showNFO)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	rel, err := filepath.Rel(rootPath, filepath.Dir(mediaPath))
	if err != nil || rel == "." {
		return rootPath
	}
	first := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	return filepath.Join(rootPath, first)
}

// resolveSeasonName is the directory between titlePath and the file, if any.
func resolveSeasonName(titlePath, mediaPath string) string {
	mediaDir := filepath.Dir(mediaPath)
	if mediaDir == titlePath {
		return ""
	}
	rel, err := filepath.Rel(titlePath, mediaDir)
	if err != nil || rel == "." {
		return ""
	}
	return strings.SplitN(rel, string(filepath.Separator), 2)[0]
}

var episodePattern = regexp.MustCompile(`(?i)S\d+E(\d+)`)
var releaseSuffixPattern = regexp.MustCompile(`(?i)\s*[-. ](WEBRip|WEBDL|WEB-DL|BluRay|BDRip|HDRip|DVDRip|HDTV|AMZN|NF|DSNP|HULU|ATVP|PMTP|IT|DDP?\d|AAC|x264|x265|HEVC|H\.?264|H\.?265|10bit|\d{3,4}p).*$`)

// displayName shortens release-style file names,
// e.g. "Casa - S01E15 - La fiesta WEBRip-1080p" -> "E15 La fiesta".
func displayName(basename string) string {
	m := episodePattern.FindStringSubmatchIndex(basename)
	if m == nil {
		return basename
	}
	ep := basename[m[2]:m[3]]
	after := strings.TrimSpace(basename[m[1]:])
	after = strings.TrimSpace(strings.TrimLeft(after, "-. "))
	after = strings.TrimSpace(releaseSuffixPattern.ReplaceAllString(after, ""))
	if after != "" {
		return "E" + ep + " " + after
	}
	return "E" + ep
}

var subtitleExts = []string{
	".srt", ".ass", ".ssa", ".vtt", ".sub", ".idx", ".sup",
}

var mediaExts = []string{
	".mkv", ".mp4", ".m4v", ".mov", ".avi", ".wmv", ".flv", ".webm",
	".ogv", ".3gp", ".ts", ".m2ts", ".mts", ".vob", ".mpg", ".mpeg",
}

func findMediaFiles(root string) ([]string, error) {
	ret := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(mediaExts, strings.ToLower(filepath.Ext(path))) {
			ret = append(ret, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func findSidecars(dir, mediaBase string) ([]Sidecar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ret := make([]Sidecar, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !slices.Contains(subtitleExts, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !sidecarMatchesMedia(stem, mediaBase) {
			continue
		}
		ret = append(ret, Sidecar{
			Path:     filepath.Join(dir, name),
			Language: normalizeLangCode(sidecarLangToken(stem, mediaBase)),
			Loadable: ext == ".srt",
		})
	}
	return ret, nil
}

// sidecarLangToken returns the last language-like token after the media
// name, e.g. "ep01.forced.spa" -> "spa".
func sidecarLangToken(stem, mediaBase string) string {
	remain := strings.TrimLeft(strings.TrimPrefix(stem, mediaBase), "._- ")
	if remain == "" {
		return ""
	}
	parts := strings.FieldsFunc(remain, func(r rune) bool {
		return r == '.' || r == '_' || r == ' '
	})
	for i := len(parts) - 1; i >= 0; i-- {
		token := strings.ToLower(parts[i])
		if normalizeLangCode(token) != "" {
			return token
		}
	}
	return ""
}

// normalizeLangCode returns the ISO 639-1 base of a language token
// ("spa" -> "es", "eng" -> "en") or "" when token is not a language.
func normalizeLangCode(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	switch token {
	case "", "unknown", "und":
		return ""
	case "chs", "cht":
		return "zh"
	}
	tag, err := language.Parse(token)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// matchesLanguage reports whether the normalized code lang is tag's base
// language. An undetermined tag matches everything.
func matchesLanguage(lang string, tag language.Tag) bool {
	if tag == language.Und {
		return true
	}
	if lang == "" {
		return false
	}
	base, _ := tag.Base()
	return lang == base.String()
}

func sidecarMatchesMedia(stem, mediaBase string) bool {
	if stem == mediaBase {
		return true
	}
	if !strings.HasPrefix(stem, mediaBase) || len(stem) <= len(mediaBase) {
		return false
	}
	switch stem[len(mediaBase)] {
	case '.', '_', '-', ' ':
		return true
	default:
		return false
	}
}

func cloneCatalog(src *Catalog) *Catalog {
	if src == nil {
		return nil
	}
	dst := &Catalog{
		Roots:  slices.Clone(src.Roots),
		Titles: slices.Clone(src.Titles),
		Files:  make([]MediaFile, len(src.Files)),
	}
	for i, f := range src.Files {
		f.Subtitles.Sidecars = slices.Clone(f.Subtitles.Sidecars)
		f.Subtitles.Embedded = slices.Clone(f.Subtitles.Embedded)
		f.Subtitles.SourceSidecars = slices.Clone(f.Subtitles.SourceSidecars)
		f.Subtitles.Languages = slices.Clone(f.Subtitles.Languages)
		dst.Files[i] = f
	}
	return dst
}
