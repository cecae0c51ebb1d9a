package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const timingArrow = "-->"

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	bracePattern = regexp.MustCompile(`\{[^}]*\}`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Parse turns raw SRT content into entries in source order. It never fails:
// blocks that cannot be used are reported in Result.Skipped.
func Parse(raw []byte) Result {
	text := normalizeNewlines(string(raw))

	var result Result
	for ordinal, block := range splitBlocks(text) {
		entry, reason := parseBlock(block)
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedBlock{
				Ordinal: ordinal + 1,
				Reason:  reason,
				Excerpt: excerpt(block),
			})
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	return result
}

// ReadFile parses the subtitle file at path. A missing, unreadable or empty
// file is an error; malformed content is not.
func ReadFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read subtitle file: %w", err)
	}
	if len(data) == 0 {
		return Result{}, fmt.Errorf("subtitle file is empty: %s", path)
	}
	return Parse(data), nil
}

func normalizeNewlines(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitBlocks(s string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimSpace(line))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// parseBlock returns a non-empty reason when the block has to be skipped.
func parseBlock(lines []string) (Entry, string) {
	if len(lines) < 2 {
		return Entry{}, "block has fewer than two lines"
	}

	var entry Entry
	timingAt := -1
	for i := 0; i < 2; i++ {
		start, end, ok := parseTiming(lines[i])
		if !ok {
			continue
		}
		entry.Start, entry.End = start, end
		timingAt = i
		break
	}
	if timingAt < 0 {
		return Entry{}, "no valid timing line"
	}
	if timingAt+1 >= len(lines) {
		return Entry{}, "no text after timing line"
	}
	if entry.End < entry.Start {
		return Entry{}, "end time precedes start time"
	}
	if timingAt == 1 {
		n, err := strconv.Atoi(lines[0])
		if err != nil {
			return Entry{}, "invalid index line"
		}
		entry.Index = n
	}

	entry.Text = cleanText(strings.Join(lines[timingAt+1:], " "))
	return entry, ""
}

func parseTiming(line string) (float64, float64, bool) {
	left, right, found := strings.Cut(line, timingArrow)
	if !found {
		return 0, 0, false
	}
	// trailing cue settings after the end timestamp are ignored
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, false
	}
	start, err := ParseTimestamp(left)
	if err != nil {
		return 0, 0, false
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// cleanText strips markup tags and collapses whitespace.
func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = bracePattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func excerpt(lines []string) string {
	s := strings.Join(lines, " / ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return s
}
