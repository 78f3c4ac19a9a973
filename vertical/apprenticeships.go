package vertical

import (
	"time"

	"github.com/fwojciec/harvest"
)

// apprenticeshipStops end a label block on apprenticeship pages.
var apprenticeshipStops = []string{
	"Training provider",
	"Training course",
	"What you'll learn",
	"Training schedule",
	"More training information",
	"Requirements",
	"About this employer",
	"After this apprenticeship",
	"Ask a question",
	"Company benefits",
	"Employer website",
	"Work",
	"Where you'll work",
	"What you'll do at work",
}

// Apprenticeships is the Find an apprenticeship service.
func Apprenticeships() *harvest.Vertical {
	h2 := func(title string) []harvest.SectionStep {
		return section([]int{2}, nil, title)
	}
	sub := func(parent []harvest.SectionStep, title string) []harvest.SectionStep {
		return within(parent, harvest.SectionStep{
			Titles: []string{title},
			Levels: []int{3, 4},
			Stop:   []int{2, 3},
		})
	}

	summary := h2("Summary")
	work := h2("Work")
	doAtWork := sub(work, "What you'll do at work")
	whereWork := sub(work, "Where you'll work")
	training := h2("Training")
	requirements := h2("Requirements")
	about := h2("About this employer")
	after := h2("After this apprenticeship")
	ask := h2("Ask a question")

	return &harvest.Vertical{
		Name:         "apprenticeships",
		Description:  "Find an apprenticeship vacancies",
		BaseURL:      "https://www.findapprenticeship.service.gov.uk",
		SearchURL:    "https://www.findapprenticeship.service.gov.uk/apprenticeships?searchTerm={query}&pageNumber=1&sort=AgeAsc",
		Delay:        700 * time.Millisecond,
		LinkSelector: `a[href^="/apprenticeship/"]`,
		RefPattern:   `(?i)^/apprenticeship/(VAC\d+)\b`,
		RefUpper:     true,
		Card: &harvest.CardCriteria{
			Labels:     []string{"Start date", "Training course", "Wage", "Closes", "Posted"},
			MinLabels:  2,
			Containers: []string{"article", "li", "section", "div"},
		},
		Labels: []string{"Start date", "Training course", "Wage", "Hours", "Duration", "Positions available", "Closes", "Posted"},
		Chrome: []string{
			"contents",
			"summary",
			"work",
			"training",
			"requirements",
			"about this employer",
			"after this apprenticeship",
			"ask a question",
			"apply now",
			"account",
		},
		Listing: []harvest.Rule{
			{Field: "title", Kind: harvest.KindAnchor},
			{Field: "employer_name", Kind: harvest.KindAfter, Offset: 1},
			{Field: "location_summary", Kind: harvest.KindAfter, Offset: 2},
			{Field: "start_date", Kind: harvest.KindLabel, Label: "Start date"},
			{Field: "training_course", Kind: harvest.KindLabel, Label: "Training course"},
			{Field: "wage", Kind: harvest.KindLabel, Label: "Wage"},
			{Field: "closing_text", Kind: harvest.KindLine, Pattern: `(?i)^closes`},
			{Field: "posted_text", Kind: harvest.KindLine, Pattern: `(?i)^posted`},
		},
		Detail: []harvest.Rule{
			{Field: "title", Kind: harvest.KindHeading},
			{Field: "employer_name", Kind: harvest.KindAfter, Offset: 1},
			{Field: "location_summary", Kind: harvest.KindAfter, Offset: 2},
			{Field: "closing_text", Kind: harvest.KindLine, Pattern: `(?i)^closes`},
			{Field: "posted_text", Kind: harvest.KindLine, Pattern: `(?i)^posted`},

			{Field: "summary_text", Kind: harvest.KindBefore, Section: summary, Label: "Wage"},
			{Field: "wage", Kind: harvest.KindLabel, Section: summary, Label: "Wage"},
			{Field: "wage_extra", Kind: harvest.KindBlock, Section: summary, Label: "Wage", Offset: 1, Stops: []string{"Training course"}, Exclude: `(?i)check minimum wage rates`},
			{Field: "training_course", Kind: harvest.KindLabel, Section: summary, Label: "Training course"},
			{Field: "hours", Kind: harvest.KindLabel, Section: summary, Label: "Hours"},
			{Field: "hours_per_week", Kind: harvest.KindLine, Section: summary, Pattern: `(?i)hours a week`},
			{Field: "start_date", Kind: harvest.KindLabel, Section: summary, Label: "Start date"},
			{Field: "duration", Kind: harvest.KindLabel, Section: summary, Label: "Duration"},
			{Field: "positions_available", Kind: harvest.KindLabel, Section: summary, Label: "Positions available"},

			{Field: "work_intro", Kind: harvest.KindBefore, Section: work, Label: "What you'll do at work"},
			{Field: "work_intro", Kind: harvest.KindText, Section: work},
			{Field: "what_youll_do_items", Kind: harvest.KindBullets, Section: doAtWork},
			{Field: "what_youll_do_items", Kind: harvest.KindBullets, Section: work},
			{Field: "what_youll_do_heading", Kind: harvest.KindFirstLine, Section: doAtWork, SkipBullets: true, Exclude: `(?i)^(where you'll work|work|.{201,})$`},
			{Field: "where_youll_work_name", Kind: harvest.KindFirstLine, Section: whereWork},
			{Field: "where_youll_work_name", Kind: harvest.KindAfter, Section: work, Label: "Where you'll work"},
			{Field: "where_youll_work_address", Kind: harvest.KindRestLines, Section: whereWork},

			{Field: "training_intro", Kind: harvest.KindText, Section: training},
			{Field: "training_provider", Kind: harvest.KindText, Section: sub(training, "Training provider")},
			{Field: "training_course_repeat", Kind: harvest.KindFirstLine, Section: sub(training, "Training course")},
			{Field: "what_youll_learn_items", Kind: harvest.KindBullets, Section: sub(training, "What you'll learn")},
			{Field: "training_schedule", Kind: harvest.KindText, Section: sub(training, "Training schedule")},
			{Field: "more_training_information", Kind: harvest.KindDetails, Section: training, Label: "More training information"},
			{Field: "more_training_information", Kind: harvest.KindText, Section: sub(training, "More training information")},
			{Field: "more_training_information", Kind: harvest.KindBlock, Section: training, Label: "More training information", Stops: apprenticeshipStops},

			{Field: "essential_qualifications", Kind: harvest.KindText, Section: sub(requirements, "Essential qualifications")},
			{Field: "skills_items", Kind: harvest.KindBullets, Section: sub(requirements, "Skills")},
			{Field: "other_requirements_items", Kind: harvest.KindBullets, Section: sub(requirements, "Other requirements")},
			{Field: "other_requirements_items", Kind: harvest.KindText, Section: sub(requirements, "Other requirements")},

			{Field: "about_employer", Kind: harvest.KindText, Section: about},
			{Field: "employer_website", Kind: harvest.KindDefinition, Section: about, Label: "Employer website", Format: harvest.FormatURL},
			{Field: "employer_website", Kind: harvest.KindBlock, Section: about, Label: "Employer website", Stops: apprenticeshipStops, Format: harvest.FormatURL},
			{Field: "employer_website", Kind: harvest.KindExternalLink, Section: about, Values: []string{"gov.uk"}},
			{Field: "company_benefits_items", Kind: harvest.KindBullets, Section: sub(about, "Company benefits")},
			{Field: "company_benefits_items", Kind: harvest.KindBlock, Section: about, Label: "Company benefits", Stops: apprenticeshipStops},

			{Field: "after_this_apprenticeship", Kind: harvest.KindBullets, Section: after},
			{Field: "after_this_apprenticeship", Kind: harvest.KindText, Section: after},

			{Field: "contact_name", Kind: harvest.KindAfter, Section: ask, Label: "The contact for this apprenticeship is"},
		},
		ImageTheme: "a young apprentice learning hands-on at a real workplace alongside an experienced colleague, tools and materials of the trade nearby",
	}
}
