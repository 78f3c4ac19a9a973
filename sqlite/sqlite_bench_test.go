package sqlite_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkUpsert compares a first-run workload, where every item is
// created, with a re-run where every item is skipped.
func BenchmarkUpsert(b *testing.B) {
	b.Run("create", func(b *testing.B) {
		benchmarkUpsert(b, false)
	})

	b.Run("skip", func(b *testing.B) {
		benchmarkUpsert(b, true)
	})
}

func benchmarkUpsert(b *testing.B, seed bool) {
	b.Helper()

	// Create a temporary file for the database
	tmpDir := b.TempDir()
	dbPath := filepath.Join(tmpDir, "bench.db")

	db := sqlite.NewDB(dbPath)
	require.NoError(b, db.Open())

	defer func() {
		db.Close()
		// Clean up WAL files if they exist
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}()

	ctx := context.Background()
	store := sqlite.NewEntityStore(db)
	input := func(i int) harvest.UpsertInput {
		return harvest.UpsertInput{
			Vertical: "jobs",
			Ref:      fmt.Sprintf("%d", i),
			Fields: harvest.Fields{
				"title":         fmt.Sprintf("Job %d", i),
				"company":       "Acme Ltd",
				"salary":        "£25,000 to £28,000 per year",
				"summary_intro": fmt.Sprintf("Vacancy %d with some additional text to make it more realistic. Lorem ipsum dolor sit amet.", i),
			},
			Category: "Hospitality",
			RunID:    "bench",
		}
	}
	if seed {
		for i := 0; i < b.N; i++ {
			_, err := store.Upsert(ctx, input(i))
			require.NoError(b, err)
		}
	}

	// Reset timer to exclude setup time
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := store.Upsert(ctx, input(i)); err != nil {
			b.Fatal(err)
		}
	}
}
