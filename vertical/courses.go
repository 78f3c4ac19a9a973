package vertical

import (
	"time"

	"github.com/fwojciec/harvest"
)

// courseNoise matches course card lines that are captions or look like a
// duration, a cost or a view link rather than free text.
const courseNoise = `(?i)^(start date|cost|learning method|duration)` +
	`|^(view course|view)$` +
	`|£|full-time|part-time` +
	`|\d.*(day|week|month|year)|(day|week|month|year).*\d` +
	`|\d.*(fee|cost)|(fee|cost).*\d`

// Courses is the National Careers Service course finder.
func Courses() *harvest.Vertical {
	accordion := func(title string) []harvest.SectionStep {
		return []harvest.SectionStep{{
			Titles:    []string{title},
			Match:     harvest.MatchContains,
			Container: ".govuk-accordion__section",
			Content:   ".govuk-accordion__section-content",
		}}
	}
	heading := func(title string) []harvest.SectionStep {
		return []harvest.SectionStep{{
			Titles: []string{title},
			Levels: []int{2, 3},
			Stop:   []int{2},
			Match:  harvest.MatchContains,
		}}
	}
	def := func(field string, keys ...string) []harvest.Rule {
		rules := make([]harvest.Rule, len(keys))
		for i, k := range keys {
			rules[i] = harvest.Rule{Field: field, Kind: harvest.KindDefinition, Label: k}
		}
		return rules
	}

	detail := []harvest.Rule{{Field: "course_name", Kind: harvest.KindHeading}}
	detail = append(detail, def("course_name", "Qualification name", "Course name", "Course title")...)
	detail = append(detail, def("course_qualification_level", "Qualification level", "Course level")...)
	detail = append(detail, def("awarding_organization", "Awarding organisation", "Awarding organization")...)
	detail = append(detail, def("learning_method", "Learning method")...)
	detail = append(detail, def("course_hours", "Course hours")...)
	detail = append(detail, def("course_start_date", "Course start date", "Start date")...)
	detail = append(detail, def("attendance_pattern", "Attendance pattern")...)
	detail = append(detail, def("cost", "Cost")...)
	detail = append(detail, def("cost_description", "Cost description")...)
	detail = append(detail, def("college_name", "Venue name", "Name")...)
	detail = append(detail, def("address", "Address")...)
	detail = append(detail, def("email", "Email")...)
	detail = append(detail, def("phone", "Phone")...)
	detail = append(detail,
		harvest.Rule{Field: "website", Kind: harvest.KindDefinition, Label: "Website", Format: harvest.FormatURL},
		harvest.Rule{Field: "who_this_course_is_for", Kind: harvest.KindText, Section: accordion("Who this course is for")},
		harvest.Rule{Field: "who_this_course_is_for", Kind: harvest.KindText, Section: heading("Who this course is for")},
		harvest.Rule{Field: "entry_requirements", Kind: harvest.KindText, Section: accordion("Entry requirements")},
		harvest.Rule{Field: "entry_requirements", Kind: harvest.KindText, Section: heading("Entry requirements")},
	)

	return &harvest.Vertical{
		Name:         "courses",
		Description:  "National Careers Service courses",
		BaseURL:      "https://nationalcareers.service.gov.uk",
		SearchURL:    "https://nationalcareers.service.gov.uk/find-a-course/searchcourse?searchTerm={query}&page=1",
		Delay:        700 * time.Millisecond,
		LinkSelector: `a[href*="/find-a-course/details"]`,
		RefParams:    []string{"courseId", "courseID"},
		RefPath:      "/find-a-course/details",
		Card: &harvest.CardCriteria{
			Labels:     []string{"Cost", "Duration", "Learning method", "Start date"},
			MinLabels:  1,
			Containers: []string{"article", "li", "section"},
		},
		Labels: []string{"Start date", "Cost", "Learning method", "Duration"},
		ChromePrefixes: []string{
			"table with course details",
			"table with course venue details",
			"discover the learning experience",
			"find out what qualifications",
		},
		Placeholders: []string{"contact course provider", "contact provider"},
		TitleField:   "course_name",
		Listing: []harvest.Rule{
			{Field: "course_name", Kind: harvest.KindHeading, Levels: []int{2, 3, 4}, Values: []string{"view course", "view"}},
			{Field: "start_date", Kind: harvest.KindLabel, Label: "Start date"},
			{Field: "cost", Kind: harvest.KindLabel, Label: "Cost"},
			{Field: "learning_method", Kind: harvest.KindLabel, Label: "Learning method"},
			{Field: "duration", Kind: harvest.KindLabel, Label: "Duration"},
			{Field: "course_type", Kind: harvest.KindLine, Pattern: `,`, MaxLen: 139, SkipKnown: true, Exclude: courseNoise},
			{Field: "town", Kind: harvest.KindLine, SkipKnown: true, Exclude: courseNoise},
			{Field: "provider", Kind: harvest.KindLine, SkipKnown: true, Exclude: courseNoise},
			{Field: "course_description", Kind: harvest.KindLine, MinLen: 20, SkipKnown: true, Exclude: courseNoise},
		},
		Detail:     detail,
		ImageTheme: "an adult learner studying in a bright classroom or library, notebook and laptop on the desk, calm focused atmosphere",
	}
}
