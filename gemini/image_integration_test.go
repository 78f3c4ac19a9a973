//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/harvest/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageGenerator_Integration_GeneratesImage(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	client, err := gemini.NewClient(ctx, apiKey)
	require.NoError(t, err)

	gen := gemini.NewImageGenerator(client.Models, nil)

	img, err := gen.GenerateImage(ctx, "jobs", "Warehouse Operative")

	require.NoError(t, err)
	assert.NotEmpty(t, img.Data)
	assert.Contains(t, img.MIMEType, "image/")
}
