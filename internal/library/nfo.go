package library

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const showNFO = "tvshow.nfo"

// showInfo is the subset of a Kodi style tvshow.nfo the catalog shows.
type showInfo struct {
	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle"`
	Year          int    `xml:"year"`
}

func readShowInfo(titlePath string) (showInfo, error) {
	data, err := os.ReadFile(filepath.Join(titlePath, showNFO))
	if err != nil {
		return showInfo{}, err
	}
	var info showInfo
	if err := xml.Unmarshal(data, &info); err != nil {
		return showInfo{}, fmt.Errorf("parse %s: %w", showNFO, err)
	}
	info.Title = strings.TrimSpace(info.Title)
	info.OriginalTitle = strings.TrimSpace(info.OriginalTitle)
	return info, nil
}

// newTitle names a title after its NFO when one parses, and after its
// directory otherwise.
func newTitle(root Root, titlePath string) Title {
	t := Title{
		ID:     root.ID + "|" + titlePath,
		RootID: root.ID,
		Name:   filepath.Base(titlePath),
		Path:   titlePath,
	}
	info, err := readShowInfo(titlePath)
	if err != nil {
		return t
	}
	if info.Title != "" {
		t.Name = info.Title
	}
	t.OriginalTitle = info.OriginalTitle
	t.Year = info.Year
	return t
}
