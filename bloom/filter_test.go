package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/harvest/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	t.Run("added keys test positive", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.01)
		assert.False(t, f.Test("jobs/123"))

		f.Add("jobs/123")

		assert.True(t, f.Test("jobs/123"))
		assert.False(t, f.Test("jobs/456"))
	})

	t.Run("test and add reports prior presence", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.01)

		assert.False(t, f.TestAndAdd("VAC1000012345"))
		assert.True(t, f.TestAndAdd("VAC1000012345"))
		assert.True(t, f.Test("VAC1000012345"))
	})

	t.Run("estimated count ignores repeats", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.01)
		assert.Equal(t, uint(0), f.EstimatedCount())

		for range 3 {
			f.Add("a")
			f.Add("b")
			f.Add("c")
		}

		count := f.EstimatedCount()
		assert.True(t, count >= 2 && count <= 4, "expected count near 3, got %d", count)
	})

	t.Run("false positive rate stays near target", func(t *testing.T) {
		t.Parallel()

		const n = 10000
		f := bloom.NewFilter(n, 0.01)
		for i := range n {
			f.Add(fmt.Sprintf("added-%d", i))
		}

		falsePositives := 0
		for i := range n {
			if f.Test(fmt.Sprintf("absent-%d", i)) {
				falsePositives++
			}
		}

		rate := float64(falsePositives) / n
		assert.Less(t, rate, 0.02, "false positive rate %f exceeds 2%%", rate)
	})
}
