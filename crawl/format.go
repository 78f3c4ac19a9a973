package crawl

import (
	"fmt"
	"strings"

	"github.com/fwojciec/harvest"
)

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		// Too short for "..." prefix, just return dots
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatSummary renders the terminal line of a run.
func FormatSummary(s *RunSummary) string {
	return fmt.Sprintf("Done. run_id=%s created=%d, updated=%d, skipped=%d, error=%d",
		s.RunID, s.Created, s.Updated, s.Skipped, s.Errors)
}

// FormatProgress renders an event as a console line. Events without a
// console form yield "".
func FormatProgress(e ProgressEvent) string {
	switch e.Type {
	case ProgressQuery:
		if e.Query.Category == "" && e.Query.Subcategory == "" {
			return fmt.Sprintf("[%d/%d] start_url=%s", e.QueryIndex, e.QueryTotal, e.Query.StartURL)
		}
		return fmt.Sprintf("[%d/%d] category=%s, subcategory=%s", e.QueryIndex, e.QueryTotal, e.Query.Category, e.Query.Subcategory)
	case ProgressItem:
		counter := fmt.Sprintf("[%d]", e.Committed)
		if e.MaxRows > 0 {
			counter = fmt.Sprintf("[%d/%d]", e.Committed, e.MaxRows)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s (%s)", counter, e.Ref, e.Status)
		if e.Title != "" {
			b.WriteString(" " + e.Title)
		}
		if e.Status == harvest.StatusError && e.Message != "" {
			b.WriteString(": " + e.Message)
		}
		return b.String()
	case ProgressImageError:
		return fmt.Sprintf("  image_error %s: %s", e.Ref, e.Message)
	case ProgressDiscovered:
		return fmt.Sprintf("Found %d %s subtypes.", e.Items, e.Query.Category)
	case ProgressListingError:
		return fmt.Sprintf("  listing error %s: %s", TruncateURL(e.URL, 80), e.Message)
	case ProgressFinished:
		if e.Summary != nil {
			return FormatSummary(e.Summary)
		}
	}
	return ""
}
