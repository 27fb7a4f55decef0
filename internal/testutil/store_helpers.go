package testutil

import (
	"path/filepath"
	"testing"

	"github.com/whunmr/mu/internal/store"
)

// NewTestStore creates an initialized index in a temporary directory. It is
// closed when the test completes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return st
}
