package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog(t *testing.T) {
	t.Parallel()

	t.Run("assigns ID and timestamp", func(t *testing.T) {
		t.Parallel()

		log := sqlite.NewAuditLog(setupTestDB(t))
		entry := &harvest.AuditEntry{RunID: "run-1", Vertical: "jobs", Ref: "1", Status: harvest.StatusCreated}

		require.NoError(t, log.AppendLog(context.Background(), entry))

		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("returns entries in insertion order", func(t *testing.T) {
		t.Parallel()

		log := sqlite.NewAuditLog(setupTestDB(t))
		ctx := context.Background()
		at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
		for _, e := range []*harvest.AuditEntry{
			{RunID: "run-1", CreatedAt: at, Vertical: "jobs", Category: "Hospitality", Subcategory: "chef",
				StartURL: "https://findajob.dwp.gov.uk/search?q=chef", Ref: "1", Status: harvest.StatusCreated},
			{RunID: "run-1", CreatedAt: at, Vertical: "jobs", Ref: "1", Status: harvest.StatusImageError, Message: "enrich: quota"},
			{RunID: "run-1", CreatedAt: at, Vertical: "jobs", Ref: "2", Status: harvest.StatusError, Message: "fetch: HTTP 404"},
			{RunID: "run-2", CreatedAt: at, Vertical: "jobs", Ref: "1", Status: harvest.StatusSkipped},
		} {
			require.NoError(t, log.AppendLog(ctx, e))
		}

		run := "run-1"
		got, err := log.FindLogs(ctx, harvest.AuditFilter{RunID: &run})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, harvest.StatusCreated, got[0].Status)
		assert.Equal(t, "Hospitality", got[0].Category)
		assert.Equal(t, "https://findajob.dwp.gov.uk/search?q=chef", got[0].StartURL)
		assert.Equal(t, at, got[0].CreatedAt)
		assert.Equal(t, harvest.StatusImageError, got[1].Status)

		ref := "1"
		got, err = log.FindLogs(ctx, harvest.AuditFilter{Ref: &ref})
		require.NoError(t, err)
		assert.Len(t, got, 3)

		status := harvest.StatusError
		got, err = log.FindLogs(ctx, harvest.AuditFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "fetch: HTTP 404", got[0].Message)

		got, err = log.FindLogs(ctx, harvest.AuditFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, harvest.StatusImageError, got[0].Status)
	})

	t.Run("rejects entries without run ID", func(t *testing.T) {
		t.Parallel()

		log := sqlite.NewAuditLog(setupTestDB(t))
		err := log.AppendLog(context.Background(), &harvest.AuditEntry{Status: harvest.StatusCreated})

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}
