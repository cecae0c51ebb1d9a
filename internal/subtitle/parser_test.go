package subtitle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TwoBlocks(t *testing.T) {
	raw := "1\n00:00:01,000 --> 00:00:02,500\nHola mundo\n\n2\n00:00:02,500 --> 00:00:04,000\nAdiós"

	result := Parse([]byte(raw))
	require.Len(t, result.Entries, 2)
	assert.Empty(t, result.Skipped)

	assert.Equal(t, Entry{Index: 1, Start: 1.0, End: 2.5, Text: "Hola mundo"}, result.Entries[0])
	assert.Equal(t, Entry{Index: 2, Start: 2.5, End: 4.0, Text: "Adiós"}, result.Entries[1])
}

func TestParse_SkipsMalformedBlock(t *testing.T) {
	raw := `1
00:00:01,000 --> 00:00:02,000
one

2
this line should be a timestamp
two

3
00:00:03,000 --> 00:00:04,000
three

4
00:00:05,000 --> 00:00:06,000
four

5
00:00:07,000 --> 00:00:08,000
five
`
	result := Parse([]byte(raw))
	require.Len(t, result.Entries, 4)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 2, result.Skipped[0].Ordinal)
	assert.Equal(t, "no valid timing line", result.Skipped[0].Reason)

	texts := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"one", "three", "four", "five"}, texts)
}

func TestParse_Normalization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Entry
	}{
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "bom and crlf",
			raw:  "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nHello\r\n\r\n2\r00:00:03,000 --> 00:00:04,000\rWorld\r",
			want: []Entry{
				{Index: 1, Start: 1, End: 2, Text: "Hello"},
				{Index: 2, Start: 3, End: 4, Text: "World"},
			},
		},
		{
			name: "multi-line text joined and tags stripped",
			raw:  "1\n00:00:01.000 --> 00:00:02.000\n<i>Hola</i>   a\n{\\an8}todos  <b>ustedes</b>\n",
			want: []Entry{{Index: 1, Start: 1, End: 2, Text: "Hola a todos ustedes"}},
		},
		{
			name: "index line optional",
			raw:  "00:00:01,000 --> 00:00:02,000\nsin índice\n",
			want: []Entry{{Start: 1, End: 2, Text: "sin índice"}},
		},
		{
			name: "text empty after cleaning is kept",
			raw:  "1\n00:00:01,000 --> 00:00:02,000\n<i></i>\n",
			want: []Entry{{Index: 1, Start: 1, End: 2, Text: ""}},
		},
		{
			name: "blank lines with spaces separate blocks",
			raw:  "1\n00:00:01,000 --> 00:00:02,000\na\n   \n2\n00:00:02,000 --> 00:00:03,000\nb\n",
			want: []Entry{
				{Index: 1, Start: 1, End: 2, Text: "a"},
				{Index: 2, Start: 2, End: 3, Text: "b"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse([]byte(tt.raw))
			assert.Equal(t, tt.want, got.Entries)
		})
	}
}

func TestParse_ShortTimestampForms(t *testing.T) {
	result := Parse([]byte("1\n01:02.500 --> 01:03,250 align:start\ntexto\n"))
	require.Len(t, result.Entries, 1)
	assert.InDelta(t, 62.5, result.Entries[0].Start, 1e-9)
	assert.InDelta(t, 63.25, result.Entries[0].End, 1e-9)
	assert.Equal(t, "texto", result.Entries[0].Text)
}

func TestParse_SkipReasons(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "single line", raw: "00:00:01,000 --> 00:00:02,000\n", reason: "block has fewer than two lines"},
		{name: "index and timing only", raw: "1\n00:00:01,000 --> 00:00:02,000\n", reason: "no text after timing line"},
		{name: "garbage", raw: "hello\nworld\n", reason: "no valid timing line"},
		{name: "non-numeric index", raw: "garbage header\n00:00:01,000 --> 00:00:02,000\nHello\n", reason: "invalid index line"},
		{name: "end before start", raw: "1\n00:00:05,000 --> 00:00:02,000\ntext\n", reason: "end time precedes start time"},
		{name: "bad minutes", raw: "1\n00:75:01,000 --> 00:00:02,000\ntext\n", reason: "no valid timing line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse([]byte(tt.raw))
			assert.Empty(t, got.Entries)
			require.Len(t, got.Skipped, 1)
			assert.Equal(t, tt.reason, got.Skipped[0].Reason)
			assert.NotEmpty(t, got.Skipped[0].Excerpt)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "a.srt")
	require.NoError(t, os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"), 0o644))
	result, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	empty := filepath.Join(dir, "empty.srt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadFile(empty)
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(dir, "missing.srt"))
	assert.Error(t, err)
}
