package vertical

import (
	"time"

	"github.com/fwojciec/harvest"
)

const (
	datePattern       = `^\d{1,2}\s+[A-Za-z]+\s+\d{4}$`
	salaryHintPattern = `(?i)(£|\bnegotiable\b|\bcompetitive\b)`
)

var jobLabels = []string{
	"Posting date",
	"Hours",
	"Closing date",
	"Location",
	"Company",
	"Job type",
	"Job reference",
	"Salary",
	"Remote working",
	"Additional salary information",
	"Disability confident",
}

// Jobs is the DWP Find a job vacancy board.
func Jobs() *harvest.Vertical {
	heading := func(titles ...string) []harvest.SectionStep {
		return []harvest.SectionStep{{
			Titles: titles,
			Levels: []int{2, 3},
			Mode:   harvest.ScopeDocument,
		}}
	}
	summary := heading("Summary")
	tail := `(?i)^(apply for this job|related jobs)$`

	return &harvest.Vertical{
		Name:         "jobs",
		Description:  "DWP Find a job vacancies",
		BaseURL:      "https://findajob.dwp.gov.uk",
		SearchURL:    "https://findajob.dwp.gov.uk/search?q={query}&w=",
		Delay:        700 * time.Millisecond,
		RefPattern:   `(?i)(?:https?://findajob\.dwp\.gov\.uk)?/?details/(\d+)`,
		AnchorWithin: []string{"h2", "h3", "h4"},
		Card:         &harvest.CardCriteria{Containers: []string{"article", "li", "section", "div"}},
		Labels:       jobLabels,
		Chrome: []string{
			"save to favourites",
			"share this job via email",
			"save",
			"share",
			"report",
		},
		ListingWins: []string{"listing_snippet"},
		Listing: []harvest.Rule{
			{Field: "title", Kind: harvest.KindAnchor},
			{Field: "posting_date", Kind: harvest.KindLine, Pattern: datePattern},
			{Field: "company", Kind: harvest.KindSplit, Sep: " - ", Part: 0, Exclude: salaryHintPattern},
			{Field: "location", Kind: harvest.KindSplit, Sep: " - ", Part: 1, Exclude: salaryHintPattern},
			{Field: "salary", Kind: harvest.KindLine, Pattern: salaryHintPattern, Exclude: `^[^£].* - `},
			{Field: "remote_working", Kind: harvest.KindLine, Values: []string{"on-site only", "hybrid remote", "fully remote", "remote", "in person"}},
			{Field: "job_type", Kind: harvest.KindLine, Values: []string{"permanent", "temporary", "contract", "apprenticeship"}},
			{Field: "hours", Kind: harvest.KindLine, Values: []string{"full time", "part time"}},
			{Field: "listing_snippet", Kind: harvest.KindParagraph, MinLen: 20},
			{Field: "listing_snippet", Kind: harvest.KindLine, MinLen: 20, SkipKnown: true, Exclude: datePattern + `|` + salaryHintPattern + `| - `},
		},
		Detail: []harvest.Rule{
			{Field: "title", Kind: harvest.KindHeading},
			{Field: "apply_url", Kind: harvest.KindLink, Label: "apply for this job"},
			{Field: "posting_date", Kind: harvest.KindLabel, Label: "Posting date"},
			{Field: "hours", Kind: harvest.KindLabel, Label: "Hours"},
			{Field: "closing_date", Kind: harvest.KindLabel, Label: "Closing date"},
			{Field: "location", Kind: harvest.KindLabel, Label: "Location"},
			{Field: "company", Kind: harvest.KindLabel, Label: "Company"},
			{Field: "job_type", Kind: harvest.KindLabel, Label: "Job type"},
			{Field: "job_reference", Kind: harvest.KindLabel, Label: "Job reference"},
			{Field: "salary", Kind: harvest.KindLabel, Label: "Salary"},
			{Field: "remote_working", Kind: harvest.KindLabel, Label: "Remote working"},
			{Field: "additional_salary_information", Kind: harvest.KindLabel, Label: "Additional salary information"},
			{Field: "disability_confident", Kind: harvest.KindExists, Label: "Disability confident"},
			{Field: "summary_intro", Kind: harvest.KindText, Section: summary, SkipBullets: true, Exclude: tail},
			{Field: "summary_bullets", Kind: harvest.KindBullets, Section: summary},
			{Field: "summary_markdown", Kind: harvest.KindMarkdown, Section: summary},
			{Field: "what_youll_do", Kind: harvest.KindText, Section: heading("What you'll do"), Exclude: tail},
			{Field: "what_youll_do", Kind: harvest.KindBlock, Label: "What you'll do", Stops: []string{"The skills you'll need", "Related jobs"}},
			{Field: "skills_youll_need", Kind: harvest.KindText, Section: heading("The skills you'll need"), Exclude: tail},
			{Field: "skills_youll_need", Kind: harvest.KindBlock, Label: "The skills you'll need", Stops: []string{"Related jobs"}},
			{Field: "listing_snippet", Kind: harvest.KindLine, Section: summary, MinLen: 20, Exclude: `(?i)^(what you'll do|the skills you'll need)$`},
			{Field: "raw_text", Kind: harvest.KindText},
		},
		ImageTheme: "modern office or study workspace, a professional working on a laptop, with subtle role-relevant objects nearby, clean minimal environment",
	}
}
