package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Write renders entries as SRT. Entries without a source index are numbered
// by position.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for i, e := range entries {
		index := e.Index
		if index <= 0 {
			index = i + 1
		}
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			index, FormatTimestamp(e.Start), FormatTimestamp(e.End), e.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes entries to path as SRT.
func WriteFile(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(f, entries); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return f.Close()
}
