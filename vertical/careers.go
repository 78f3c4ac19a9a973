package vertical

import (
	"time"

	"github.com/fwojciec/harvest"
)

// Careers is the National Careers Service job profile directory. Listing
// pages only carry links, so every item is a bare stub.
func Careers() *harvest.Vertical {
	h2 := func(prefix string, pick harvest.Pick) []harvest.SectionStep {
		return []harvest.SectionStep{{
			Titles: []string{prefix},
			Levels: []int{2},
			Match:  harvest.MatchPrefix,
			Pick:   pick,
		}}
	}
	// Subsections are searched in document order up to the next h2, then
	// collected from their siblings.
	sub := func(parent []harvest.SectionStep, level int, stop []int, prefixes ...string) []harvest.SectionStep {
		outer := make([]harvest.SectionStep, len(parent))
		copy(outer, parent)
		outer[len(outer)-1].Mode = harvest.ScopeDocument
		return within(outer, harvest.SectionStep{
			Titles: prefixes,
			Levels: []int{level},
			Stop:   stop,
			Match:  harvest.MatchPrefix,
		})
	}

	howTo := h2("How to become", harvest.PickLast)
	college := sub(howTo, 3, []int{2, 3}, "University", "College")
	apprenticeship := sub(howTo, 3, []int{2, 3}, "Apprenticeship")
	alternative := h2("Alternative titles", harvest.PickFirst)
	alternative[0].Mode = harvest.ScopeDocument

	return &harvest.Vertical{
		Name:         "careers",
		Description:  "National Careers Service job profiles",
		BaseURL:      "https://nationalcareers.service.gov.uk",
		SearchURL:    "https://nationalcareers.service.gov.uk/explore-careers/all-careers?jobCategories={query}",
		Delay:        500 * time.Millisecond,
		LinkSelector: `a[href*="/job-profiles/"]`,
		RefPattern:   `^(?:https?://[^/]+)?/job-profiles/([a-z0-9-]+)/?(?:[?#].*)?$`,
		TitleField:   "jobname",
		Routes: []harvest.Route{
			{
				Name:      "category",
				IndexURL:  "https://nationalcareers.service.gov.uk/explore-careers/all-careers",
				SearchURL: "https://nationalcareers.service.gov.uk/explore-careers/all-careers?jobCategories={query}",
				InputName: "jobCategories",
			},
			{
				Name:        "sector",
				IndexURL:    "https://nationalcareers.service.gov.uk/explore-careers/job-sector",
				SearchURL:   "https://nationalcareers.service.gov.uk/explore-careers/job-sector/{query}/view-all-sector-careers",
				LinkPattern: `^(?:https?://[^/]+)?/explore-careers/job-sector/([a-z0-9-]+)/?$`,
			},
		},
		Detail: []harvest.Rule{
			{Field: "jobname", Kind: harvest.KindHeading},
			{Field: "job_description", Kind: harvest.KindParagraph, Section: alternative},
			{Field: "salary", Kind: harvest.KindProse, Section: h2("Average salary", harvest.PickFirst)},
			{Field: "hours", Kind: harvest.KindProse, Section: h2("Typical hours", harvest.PickFirst)},
			{Field: "timings", Kind: harvest.KindProse, Section: h2("You could work", harvest.PickFirst)},
			{Field: "how_to_become", Kind: harvest.KindProse, Section: howTo},
			{Field: "college", Kind: harvest.KindProse, Section: college},
			{Field: "college_entry_req", Kind: harvest.KindProse, Section: sub(college, 4, []int{2, 3, 4}, "Entry requirements")},
			{Field: "apprenticeship", Kind: harvest.KindProse, Section: apprenticeship},
			{Field: "apprenticeship_entry_req", Kind: harvest.KindProse, Section: sub(apprenticeship, 4, []int{2, 3, 4}, "Entry requirements")},
		},
		ImageTheme: "a professional at work in a setting typical of the role, natural candid moment, relevant equipment in view",
	}
}
