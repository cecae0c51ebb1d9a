package subtitle

import (
	"sort"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage picks the language most entries are written in.
// Returns language.Und when nothing could be detected.
func DetectLanguage(entries []Entry) language.Tag {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Text == "" {
			continue
		}
		code := whatlanggo.DetectLang(e.Text).Iso6391()
		if code == "" {
			continue
		}
		counts[code]++
	}
	if len(counts) == 0 {
		return language.Und
	}

	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	// ties resolve alphabetically so the result is stable
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})

	tag, err := language.Parse(codes[0])
	if err != nil {
		return language.Und
	}
	return tag
}
