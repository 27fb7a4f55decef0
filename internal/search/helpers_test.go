package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// assertNodeEqual compares two query trees, treating nil slices and empty
// slices as equivalent.
func assertNodeEqual(t *testing.T, got, want Node) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Node mismatch (-want +got):\n%s", diff)
	}
}
