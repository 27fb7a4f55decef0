package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/whunmr/mu/internal/store"
)

// openIndexForWrite opens (creating if needed) the index and brings its
// schema up to date.
func openIndexForWrite() (*store.Store, error) {
	if err := cfg.EnsureHomeDir(); err != nil {
		return nil, fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
	}
	s, err := store.Open(cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := s.InitSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// openIndexForRead opens an existing index read-only.
func openIndexForRead() (*store.Store, error) {
	path := cfg.IndexPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no index at %s; run 'mu index' first", path)
	}
	s, err := store.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return s, nil
}
