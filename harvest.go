// Package harvest ingests structured records (job vacancies, apprenticeships,
// training courses, career profiles) from public listing websites that offer
// no API. It crawls paginated search results, extracts labeled fields from
// loosely structured detail pages, merges listing and detail data, and
// persists the result idempotently with per-field change tracking and a
// per-run audit trail.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, gemini/).
package harvest
