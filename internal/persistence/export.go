package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/xuri/excelize/v2"
)

// ExportSheet names the worksheet written by ExportWorkbook.
const ExportSheet = "Translations"

var exportHeader = []interface{}{"Source Word", "Translation", "Context Sentence", "Timestamp"}

type recordLister interface {
	All(ctx context.Context) ([]vocab.Record, error)
}

// ExportWorkbook writes every stored record to an .xlsx workbook at path and
// returns the number of rows written. The file is replaced atomically.
func ExportWorkbook(ctx context.Context, store recordLister, path string) (int, error) {
	records, err := store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list translations: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("Close workbook: %v", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return 0, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}
	if err := f.SetRowStyle(ExportSheet, 1, 1, bold); err != nil {
		return 0, err
	}
	if err := f.SetColWidth(ExportSheet, "A", "B", 24); err != nil {
		return 0, err
	}
	if err := f.SetColWidth(ExportSheet, "C", "C", 60); err != nil {
		return 0, err
	}
	if err := f.SetColWidth(ExportSheet, "D", "D", 20); err != nil {
		return 0, err
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []interface{}{rec.SourceWord, rec.Translation, rec.ContextSentence, formatTimestamp(rec.Timestamp)}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create export directory: %w", err)
		}
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		return 0, fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("replace workbook: %w", err)
	}
	return len(records), nil
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(TimestampLayout)
}
