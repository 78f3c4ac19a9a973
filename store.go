package harvest

import (
	"context"
	"strings"
	"time"
)

// Status is the outcome of one ingestion attempt for one item.
type Status string

const (
	StatusCreated    Status = "created"
	StatusUpdated    Status = "updated"
	StatusSkipped    Status = "skipped"
	StatusError      Status = "error"
	StatusImageError Status = "image_error"
)

// Fields outside the merged field set that still count as changes.
const (
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
)

// FieldURL holds the canonical detail URL inside the merged field set.
const FieldURL = "url"

// Entity is the persisted form of one listed item, keyed by (Vertical, Ref).
type Entity struct {
	Vertical    string
	Ref         string
	Category    string
	Subcategory string
	Fields      Fields
	FieldsHash  string
	ImageURL    string

	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastCheckedAt time.Time

	LastScrapeStatus  Status
	LastScrapeMessage string
	LastScrapeRunID   string
}

// Title returns the display title stored under field.
func (e *Entity) Title(field string) string {
	return strings.TrimSpace(e.Fields[field])
}

// Validate returns an error if the entity key is incomplete.
func (e *Entity) Validate() error {
	if e.Vertical == "" {
		return Errorf(EINVALID, "entity vertical required")
	}
	if e.Ref == "" {
		return Errorf(EINVALID, "entity ref required")
	}
	return nil
}

// UpsertInput is one merged record bound for the store.
type UpsertInput struct {
	Vertical    string
	Ref         string
	Fields      Fields
	Category    string
	Subcategory string
	RunID       string
}

// Validate returns an error if the input cannot be stored.
func (in *UpsertInput) Validate() error {
	if in.Vertical == "" {
		return Errorf(EINVALID, "upsert vertical required")
	}
	if in.Ref == "" {
		return Errorf(EINVALID, "upsert ref required")
	}
	if in.RunID == "" {
		return Errorf(EINVALID, "upsert run ID required")
	}
	return nil
}

// UpsertResult reports what an Upsert did.
type UpsertResult struct {
	Status        Status
	ChangedFields []string
	Message       string
}

// EntityFilter selects entities for FindEntities.
type EntityFilter struct {
	Vertical *string
	Category *string
	RunID    *string
	Status   *Status

	Limit  int
	Offset int
}

// EntityStore persists entities. Every method is atomic per entity.
type EntityStore interface {
	// FindEntity returns ENOTFOUND when no entity has the key.
	FindEntity(ctx context.Context, vertical, ref string) (*Entity, error)

	// FindEntities returns entities ordered by most recently checked.
	FindEntities(ctx context.Context, filter EntityFilter) ([]*Entity, error)

	// Upsert creates or diffs the entity for in, stamping run metadata on
	// every path.
	Upsert(ctx context.Context, in UpsertInput) (*UpsertResult, error)

	// SetImageURL records a published image without touching scrape status.
	SetImageURL(ctx context.Context, vertical, ref, url string) error

	// MarkError stamps an error outcome on an existing entity.
	// Returns ENOTFOUND when the entity does not exist.
	MarkError(ctx context.Context, vertical, ref, runID, message string, now time.Time) error
}

// ChangedFieldsMessage formats changed field names as stored in
// LastScrapeMessage.
func ChangedFieldsMessage(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return "changed_fields=" + strings.Join(fields, ",")
}

// PlanUpsert computes the row that should be written for in given the
// currently stored entity (nil when absent). It is pure; backends call it
// inside their own per-entity transaction.
//
// Category and subcategory are only filled when the stored value is empty.
// Every other field is compared by string equality, and a field missing
// from in keeps its stored value.
func PlanUpsert(existing *Entity, in UpsertInput, now time.Time) (*Entity, *UpsertResult) {
	if existing == nil {
		fields := in.Fields.Clone()
		e := &Entity{
			Vertical:          in.Vertical,
			Ref:               in.Ref,
			Category:          in.Category,
			Subcategory:       in.Subcategory,
			Fields:            fields,
			FieldsHash:        fields.Hash(),
			CreatedAt:         now,
			UpdatedAt:         now,
			LastCheckedAt:     now,
			LastScrapeStatus:  StatusCreated,
			LastScrapeRunID:   in.RunID,
			LastScrapeMessage: "",
		}
		return e, &UpsertResult{Status: StatusCreated}
	}

	next := *existing
	next.Fields = existing.Fields.Clone()

	var changed []string
	if in.Category != "" && strings.TrimSpace(existing.Category) == "" {
		next.Category = in.Category
		changed = append(changed, FieldCategory)
	}
	if in.Subcategory != "" && strings.TrimSpace(existing.Subcategory) == "" {
		next.Subcategory = in.Subcategory
		changed = append(changed, FieldSubcategory)
	}
	for _, k := range in.Fields.Names() {
		v := in.Fields[k]
		if old, ok := existing.Fields[k]; ok && old == v {
			continue
		}
		if _, ok := existing.Fields[k]; !ok && v == "" {
			// An absent field and an empty one are the same stored value.
			next.Fields[k] = v
			continue
		}
		next.Fields[k] = v
		changed = append(changed, k)
	}

	next.LastCheckedAt = now
	next.LastScrapeRunID = in.RunID
	next.FieldsHash = next.Fields.Hash()

	res := &UpsertResult{ChangedFields: changed}
	if len(changed) == 0 {
		res.Status = StatusSkipped
	} else {
		res.Status = StatusUpdated
		res.Message = ChangedFieldsMessage(changed)
		next.UpdatedAt = now
	}
	next.LastScrapeStatus = res.Status
	next.LastScrapeMessage = res.Message
	return &next, res
}
