package harvest_test

import (
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routedVertical(routes ...harvest.Route) *harvest.Vertical {
	return &harvest.Vertical{Name: "careers", RefPattern: `/job-profiles/([a-z0-9-]+)`, Routes: routes}
}

var (
	categoryRoute = harvest.Route{
		Name:      "category",
		IndexURL:  "https://example.com/all-careers",
		SearchURL: "https://example.com/all-careers?jobCategories={query}",
		InputName: "jobCategories",
	}
	sectorRoute = harvest.Route{
		Name:        "sector",
		IndexURL:    "https://example.com/job-sector",
		SearchURL:   "https://example.com/job-sector/{query}/view-all-sector-careers",
		LinkPattern: `^/job-sector/([a-z0-9-]+)/?$`,
	}
)

func TestRoute_Compile(t *testing.T) {
	t.Parallel()

	require.NoError(t, routedVertical(categoryRoute, sectorRoute).Compile())

	tests := map[string]harvest.Route{
		"missing name":       {IndexURL: "https://example.com/a", SearchURL: "https://example.com/{query}", InputName: "c"},
		"missing index":      {Name: "r", SearchURL: "https://example.com/{query}", InputName: "c"},
		"missing search":     {Name: "r", IndexURL: "https://example.com/a", InputName: "c"},
		"neither mode":       {Name: "r", IndexURL: "https://example.com/a", SearchURL: "https://example.com/{query}"},
		"both modes":         {Name: "r", IndexURL: "https://example.com/a", SearchURL: "https://example.com/{query}", InputName: "c", LinkPattern: `/(x)`},
		"bad link pattern":   {Name: "r", IndexURL: "https://example.com/a", SearchURL: "https://example.com/{query}", LinkPattern: `(`},
		"pattern with group": {Name: "r", IndexURL: "https://example.com/a", SearchURL: "https://example.com/{query}", LinkPattern: `/x`},
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := routedVertical(r).Compile()
			require.Error(t, err)
			assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
		})
	}
}

func TestRoute_SlugOf(t *testing.T) {
	t.Parallel()

	v := routedVertical(categoryRoute, sectorRoute)
	require.NoError(t, v.Compile())
	sector, category := &v.Routes[1], &v.Routes[0]

	assert.Equal(t, "health", sector.SlugOf("/job-sector/health"))
	assert.Equal(t, "law-and-order", sector.SlugOf(" /job-sector/law-and-order/ "))
	assert.Empty(t, sector.SlugOf("/job-sector/health/view-all-sector-careers"))
	assert.Empty(t, sector.SlugOf("/job-profiles/nurse"))
	assert.Empty(t, category.SlugOf("/job-sector/health"), "input routes have no links")
}

func TestRoute_Query(t *testing.T) {
	t.Parallel()

	r := categoryRoute

	assert.Equal(t, "https://example.com/all-careers?jobCategories=animal+care", r.SearchURLFor("animal care"))
	assert.Equal(t, harvest.Query{
		Category:    "category",
		Subcategory: "Animal care",
		StartURL:    "https://example.com/all-careers?jobCategories=animal-care",
	}, r.Query(harvest.Subtype{Name: "Animal care", Slug: "animal-care"}))
}

func TestVertical_SelectRoutes(t *testing.T) {
	t.Parallel()

	v := routedVertical(categoryRoute, sectorRoute)
	require.NoError(t, v.Compile())

	t.Run("no names selects every route", func(t *testing.T) {
		t.Parallel()

		routes, err := v.SelectRoutes(nil)

		require.NoError(t, err)
		require.Len(t, routes, 2)
		assert.Equal(t, "category", routes[0].Name)
		assert.Equal(t, "sector", routes[1].Name)
	})

	t.Run("keeps vertical order", func(t *testing.T) {
		t.Parallel()

		routes, err := v.SelectRoutes([]string{"sector", "category"})

		require.NoError(t, err)
		assert.Equal(t, []string{"category", "sector"}, []string{routes[0].Name, routes[1].Name})
	})

	t.Run("selects one route", func(t *testing.T) {
		t.Parallel()

		routes, err := v.SelectRoutes([]string{" sector "})

		require.NoError(t, err)
		require.Len(t, routes, 1)
		assert.Same(t, &v.Routes[1], routes[0])
	})

	t.Run("unknown route lists the known ones", func(t *testing.T) {
		t.Parallel()

		_, err := v.SelectRoutes([]string{"region"})

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
		assert.Equal(t, `vertical "careers" has no route "region" (have: category, sector)`, harvest.ErrorMessage(err))
	})

	t.Run("vertical without routes", func(t *testing.T) {
		t.Parallel()

		_, err := routedVertical().SelectRoutes([]string{"sector"})

		assert.Equal(t, `vertical "careers" has no routes`, harvest.ErrorMessage(err))
	})
}
