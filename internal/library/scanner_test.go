package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanner_SidecarsInStudyLanguage(t *testing.T) {
	tmp := t.TempDir()
	seasonDir := filepath.Join(tmp, "series", "La Casa", "Season 1")
	mediaPath := filepath.Join(seasonDir, "episode01.mkv")
	touch(t, mediaPath)
	touch(t, filepath.Join(seasonDir, "episode01.srt"))
	touch(t, filepath.Join(seasonDir, "episode01.spa.srt"))
	touch(t, filepath.Join(seasonDir, "episode01.en.srt"))
	touch(t, filepath.Join(seasonDir, "episode01.es.ass"))

	scanner := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "series")}), language.Spanish)
	cat, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Roots, 1)
	assert.Equal(t, 1, cat.Roots[0].TitleCount)
	require.Len(t, cat.Titles, 1)
	assert.Equal(t, "La Casa", cat.Titles[0].Name)
	require.Len(t, cat.Files, 1)

	f := cat.Files[0]
	assert.Equal(t, "Season 1", f.Season)
	assert.True(t, f.Studyable)
	assert.ElementsMatch(t, []string{
		filepath.Join(seasonDir, "episode01.srt"),
		filepath.Join(seasonDir, "episode01.spa.srt"),
	}, f.Subtitles.SourceSidecars)
	assert.ElementsMatch(t, []string{"es", "en"}, f.Subtitles.Languages)
	assert.Len(t, f.Subtitles.Sidecars, 4)
	for _, sc := range f.Subtitles.Sidecars {
		assert.Equal(t, filepath.Ext(sc.Path) == ".srt", sc.Loadable, sc.Path)
	}
}

func TestScanner_OnlyOtherLanguages(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "movies", "Film")
	touch(t, filepath.Join(dir, "film.mkv"))
	touch(t, filepath.Join(dir, "film.eng.srt"))
	touch(t, filepath.Join(dir, "film.fre.srt"))

	cat, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "movies")}), language.Spanish).
		Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Files, 1)
	assert.False(t, cat.Files[0].Studyable)
	assert.Empty(t, cat.Files[0].Subtitles.SourceSidecars)
	assert.ElementsMatch(t, []string{"en", "fr"}, cat.Files[0].Subtitles.Languages)
}

func TestScanner_EmbeddedTracks(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "movies", "Film")
	touch(t, filepath.Join(dir, "a.mkv"))
	touch(t, filepath.Join(dir, "b.mkv"))
	touch(t, filepath.Join(dir, "c.mkv"))

	lister := func(_ context.Context, path string) ([]media.Track, error) {
		switch filepath.Base(path) {
		case "a.mkv":
			return []media.Track{{Language: "spa", Codec: "subrip"}}, nil
		case "b.mkv":
			// bitmap tracks cannot be studied
			return []media.Track{{Language: "spa", Codec: "hdmv_pgs_subtitle"}, {Language: "eng", Codec: "ass"}}, nil
		default:
			return nil, errors.New("invalid data found when processing input")
		}
	}

	cat, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "movies")}), language.Spanish,
		WithTrackLister(lister)).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Files, 3)

	byName := map[string]MediaFile{}
	for _, f := range cat.Files {
		byName[filepath.Base(f.Path)] = f
	}
	assert.True(t, byName["a.mkv"].Studyable)
	assert.Equal(t, []string{"es"}, byName["a.mkv"].Subtitles.Embedded)
	assert.False(t, byName["b.mkv"].Studyable)
	assert.Equal(t, []string{"en"}, byName["b.mkv"].Subtitles.Embedded)
	assert.False(t, byName["c.mkv"].Studyable)
}

func TestScanner_TitleResolutionWithNFO(t *testing.T) {
	tmp := t.TempDir()
	titleDir := filepath.Join(tmp, "anime", "Casa de Papel")
	seasonDir := filepath.Join(titleDir, "Season 1")
	touch(t, filepath.Join(titleDir, "tvshow.nfo"))
	base := "Casa de Papel - S01E15 - El plan WEBRip-1080p"
	touch(t, filepath.Join(seasonDir, base+".mkv"))
	touch(t, filepath.Join(seasonDir, base+".srt"))

	cat, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "anime")}), language.Spanish).
		Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Titles, 1)
	assert.Equal(t, titleDir, cat.Titles[0].Path)
	require.Len(t, cat.Files, 1)
	assert.Equal(t, "Season 1", cat.Files[0].Season)
	assert.Equal(t, "E15 El plan", cat.Files[0].Name)
}

func TestScanner_MultipleSeasonsShareTitle(t *testing.T) {
	tmp := t.TempDir()
	titleDir := filepath.Join(tmp, "tv", "Show")
	touch(t, filepath.Join(titleDir, "tvshow.nfo"))
	touch(t, filepath.Join(titleDir, "Season 1", "ep01.mkv"))
	touch(t, filepath.Join(titleDir, "Season 2", "ep01.mkv"))

	cat, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "tv")}), language.Spanish).
		Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Titles, 1)
	assert.Equal(t, 2, cat.Titles[0].FileCount)
	seasons := map[string]bool{}
	for _, f := range cat.Files {
		seasons[f.Season] = true
	}
	assert.True(t, seasons["Season 1"])
	assert.True(t, seasons["Season 2"])
}

func TestScanner_SkipsMissingRootsAndHiddenDirs(t *testing.T) {
	tmp := t.TempDir()
	touch(t, filepath.Join(tmp, "lib", ".trash", "old.mkv"))
	touch(t, filepath.Join(tmp, "lib", "Film", "film.mp4"))

	cat, err := NewScanner(RootsFromDirs([]string{
		filepath.Join(tmp, "lib"),
		filepath.Join(tmp, "does-not-exist"),
	}), language.Spanish).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Roots, 1)
	require.Len(t, cat.Files, 1)
	assert.Equal(t, "film.mp4", filepath.Base(cat.Files[0].Path))
}

func TestScanner_SidecarNeedsBoundaryAfterMediaName(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "shows", "Series")
	touch(t, filepath.Join(dir, "ep1.mkv"))
	touch(t, filepath.Join(dir, "ep10.es.srt"))

	cat, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "shows")}), language.Spanish).
		Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Files, 1)
	assert.Empty(t, cat.Files[0].Subtitles.Sidecars)
	assert.False(t, cat.Files[0].Studyable)
}

func TestScanner_CacheUntilInvalidate(t *testing.T) {
	tmp := t.TempDir()
	touch(t, filepath.Join(tmp, "shows", "Anime", "ep01.mkv"))

	var calls atomic.Int32
	scanner := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "shows")}), language.Spanish,
		WithTrackLister(func(context.Context, string) ([]media.Track, error) {
			calls.Add(1)
			return nil, nil
		}),
		WithCacheTTL(10*time.Second),
	)

	_, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	_, err = scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	scanner.Invalidate()
	_, err = scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScanner_SetSourceLanguageTakesEffectImmediately(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "shows", "Anime")
	touch(t, filepath.Join(dir, "ep01.mkv"))
	touch(t, filepath.Join(dir, "ep01.fr.srt"))

	scanner := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "shows")}), language.Spanish,
		WithCacheTTL(10*time.Second))

	cat, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.False(t, cat.Files[0].Studyable)

	scanner.SetSourceLanguage(language.French)
	assert.Equal(t, language.French, scanner.SourceLanguage())

	cat, err = scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, cat.Files[0].Studyable)
}

func TestScanner_CanceledContext(t *testing.T) {
	tmp := t.TempDir()
	touch(t, filepath.Join(tmp, "lib", "a.mkv"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "lib")}), language.Spanish).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Casa - S01E15 - La fiesta WEBRip-1080p", "E15 La fiesta"},
		{"Show - S02E03 - The Title", "E03 The Title"},
		{"Show - S01E01 - Pilot HDTV-720p", "E01 Pilot"},
		{"Show.S01E05.Episode.Name.1080p.WEB-DL", "E05 Episode.Name"},
		{"S01E01", "E01"},
		{"The Italian Job", "The Italian Job"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.input))
		})
	}
}

func TestResolveSeasonName(t *testing.T) {
	tests := []struct {
		name      string
		titlePath string
		mediaPath string
		want      string
	}{
		{"nested season", "/tv/Show", "/tv/Show/Season 1/ep01.mkv", "Season 1"},
		{"no season", "/tv/Show", "/tv/Show/ep01.mkv", ""},
		{"deeply nested", "/tv/Show", "/tv/Show/Season 2/extras/ep01.mkv", "Season 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveSeasonName(tt.titlePath, tt.mediaPath))
		})
	}
}

func TestNormalizeLangCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"es", "es"},
		{"spa", "es"},
		{"eng", "en"},
		{"fre", "fr"},
		{"chs", "zh"},
		{"jpn", "ja"},
		{"Unknown", ""},
		{"forced", ""},
		{"default", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLangCode(tt.input))
		})
	}
}
