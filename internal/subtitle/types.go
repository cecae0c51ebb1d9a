package subtitle

import "fmt"

// Entry is one timed subtitle block. Start and End are seconds from the
// beginning of the media and Start <= End always holds.
type Entry struct {
	Index int     `json:"index"` // block number from the source, 0 when absent
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Contains reports whether pos falls inside the entry, bounds included.
func (e Entry) Contains(pos float64) bool {
	return e.Start <= pos && pos <= e.End
}

func (e Entry) String() string {
	return fmt.Sprintf("%s --> %s %q", FormatTimestamp(e.Start), FormatTimestamp(e.End), e.Text)
}

// SkippedBlock records a block the parser could not use.
type SkippedBlock struct {
	Ordinal int    `json:"ordinal"` // 1-based position among blank-line separated blocks
	Reason  string `json:"reason"`
	Excerpt string `json:"excerpt"`
}

// Result is the outcome of parsing a subtitle stream.
type Result struct {
	Entries []Entry        `json:"entries"`
	Skipped []SkippedBlock `json:"skipped,omitempty"`
}

// Empty reports whether nothing usable was parsed.
func (r Result) Empty() bool {
	return len(r.Entries) == 0
}
