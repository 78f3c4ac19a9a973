package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/mock"
	hslog "github.com/fwojciec/harvest/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingEntityStore_Upsert(t *testing.T) {
	t.Parallel()

	in := harvest.UpsertInput{Vertical: "jobs", Ref: "123", RunID: "run-1", Fields: harvest.Fields{"title": "Chef"}}

	t.Run("logs status and changed field count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.EntityStore{
			UpsertFn: func(context.Context, harvest.UpsertInput) (*harvest.UpsertResult, error) {
				return &harvest.UpsertResult{Status: harvest.StatusUpdated, ChangedFields: []string{"salary", "title"}}, nil
			},
		}

		res, err := hslog.NewLoggingEntityStore(inner, logger).Upsert(context.Background(), in)

		require.NoError(t, err)
		assert.Equal(t, harvest.StatusUpdated, res.Status)
		output := buf.String()
		assert.Contains(t, output, "msg=upsert")
		assert.Contains(t, output, "vertical=jobs")
		assert.Contains(t, output, "ref=123")
		assert.Contains(t, output, "run_id=run-1")
		assert.Contains(t, output, "status=updated")
		assert.Contains(t, output, "changed=2")
	})

	t.Run("logs failures at error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.EntityStore{
			UpsertFn: func(context.Context, harvest.UpsertInput) (*harvest.UpsertResult, error) {
				return nil, errors.New("database is locked")
			},
		}

		_, err := hslog.NewLoggingEntityStore(inner, logger).Upsert(context.Background(), in)

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, "err=\"database is locked\"")
		assert.NotContains(t, output, "status=")
	})
}

func TestLoggingEntityStore_Writes(t *testing.T) {
	t.Parallel()

	t.Run("set image url", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		var gotURL string
		inner := &mock.EntityStore{
			SetImageURLFn: func(_ context.Context, vertical, ref, url string) error {
				gotURL = url
				return nil
			},
		}

		err := hslog.NewLoggingEntityStore(inner, logger).SetImageURL(context.Background(), "jobs", "123", "https://cdn.example.com/jobs/123.png")

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/jobs/123.png", gotURL)
		assert.Contains(t, buf.String(), "set image url")
	})

	t.Run("mark error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.EntityStore{
			MarkErrorFn: func(context.Context, string, string, string, string, time.Time) error {
				return harvest.Errorf(harvest.ENOTFOUND, "entity not found")
			},
		}

		err := hslog.NewLoggingEntityStore(inner, logger).MarkError(context.Background(), "jobs", "123", "run-1", "HTTP 404", time.Now())

		assert.Equal(t, harvest.ENOTFOUND, harvest.ErrorCode(err))
		output := buf.String()
		assert.Contains(t, output, "mark error")
		assert.Contains(t, output, "message=\"HTTP 404\"")
	})
}

func TestLoggingEntityStore_ReadsAreSilent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &mock.EntityStore{
		FindEntityFn: func(_ context.Context, vertical, ref string) (*harvest.Entity, error) {
			return &harvest.Entity{Vertical: vertical, Ref: ref}, nil
		},
		FindEntitiesFn: func(context.Context, harvest.EntityFilter) ([]*harvest.Entity, error) {
			return nil, nil
		},
	}
	store := hslog.NewLoggingEntityStore(inner, logger)

	e, err := store.FindEntity(context.Background(), "jobs", "123")
	require.NoError(t, err)
	assert.Equal(t, "123", e.Ref)
	_, err = store.FindEntities(context.Background(), harvest.EntityFilter{})
	require.NoError(t, err)

	assert.Empty(t, buf.String())
}
