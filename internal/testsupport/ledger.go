package testsupport

import (
	"testing"

	"leafspec/internal/config"
	"leafspec/internal/runs"
)

// MustOpenLedger opens the run ledger for cfg and closes it when the test
// finishes.
func MustOpenLedger(t testing.TB, cfg *config.Config) *runs.Store {
	t.Helper()

	store, err := runs.Open(cfg)
	if err != nil {
		t.Fatalf("runs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
