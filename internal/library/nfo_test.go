package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestScanner_TitleFromNFO(t *testing.T) {
	tmp := t.TempDir()
	titleDir := filepath.Join(tmp, "tv", "money-heist")
	touch(t, filepath.Join(titleDir, "Season 1", "ep01.mkv"))
	nfo := `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>
<tvshow>
  <title> La casa de papel </title>
  <originaltitle>La casa de papel</originaltitle>
  <year>2017</year>
  <plot>Ignored.</plot>
</tvshow>`
	require.NoError(t, os.WriteFile(filepath.Join(titleDir, showNFO), []byte(nfo), 0o644))

	cat, err := NewScanner(RootsFromDirs([]string{filepath.Join(tmp, "tv")}), language.Spanish).
		Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Titles, 1)
	assert.Equal(t, "La casa de papel", cat.Titles[0].Name)
	assert.Equal(t, "La casa de papel", cat.Titles[0].OriginalTitle)
	assert.Equal(t, 2017, cat.Titles[0].Year)
	assert.Equal(t, titleDir, cat.Titles[0].Path)
}

func TestNewTitle_UnreadableNFOFallsBackToDirectory(t *testing.T) {
	tmp := t.TempDir()
	titleDir := filepath.Join(tmp, "Show")
	touch(t, filepath.Join(titleDir, showNFO))

	title := newTitle(Root{ID: tmp}, titleDir)
	assert.Equal(t, "Show", title.Name)
	assert.Zero(t, title.Year)

	_, err := readShowInfo(filepath.Join(tmp, "missing"))
	assert.Error(t, err)
}
