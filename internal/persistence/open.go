package persistence

import (
	"fmt"
	"io"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/vocab"
)

// Store is a vocabulary store that owns an underlying resource.
type Store interface {
	vocab.Store
	vocab.PlaceholderReplacer
	io.Closer
}

// Open returns the store selected by cfg.Backend.
func Open(cfg config.VocabConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendCSV, "":
		store, err := NewCSVStore(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vocabulary backend %q", cfg.Backend)
	}
}
