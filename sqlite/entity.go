package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
)

// Compile-time interface verification.
var _ harvest.EntityStore = (*EntityStore)(nil)

const entityColumns = `vertical, ref, category, subcategory, fields, fields_hash, image_url,
	created_at, updated_at, last_checked_at,
	last_scrape_status, last_scrape_message, last_scrape_run_id`

// EntityStore implements harvest.EntityStore using SQLite.
type EntityStore struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(db *DB) *EntityStore {
	return &EntityStore{db: db, Now: time.Now}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*harvest.Entity, error) {
	var e harvest.Entity
	var fields, createdAt, updatedAt, checkedAt, status string
	if err := row.Scan(&e.Vertical, &e.Ref, &e.Category, &e.Subcategory, &fields, &e.FieldsHash, &e.ImageURL,
		&createdAt, &updatedAt, &checkedAt,
		&status, &e.LastScrapeMessage, &e.LastScrapeRunID); err != nil {
		return nil, err
	}
	e.LastScrapeStatus = harvest.Status(status)
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "corrupt fields for %s/%s", e.Vertical, e.Ref)
	}
	if e.Fields == nil {
		e.Fields = harvest.Fields{}
	}

	var err error
	if e.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	if e.LastCheckedAt, err = parseTime(checkedAt, "last_checked_at"); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindEntity retrieves an entity by its key.
func (s *EntityStore) FindEntity(ctx context.Context, vertical, ref string) (*harvest.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE vertical = ? AND ref = ?`, vertical, ref)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FindEntities retrieves entities matching the filter, most recently
// checked first.
func (s *EntityStore) FindEntities(ctx context.Context, filter harvest.EntityFilter) ([]*harvest.Entity, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + entityColumns + ` FROM entities WHERE 1=1`)

	if filter.Vertical != nil {
		query.WriteString(" AND vertical = ?")
		args = append(args, *filter.Vertical)
	}
	if filter.Category != nil {
		query.WriteString(" AND category = ?")
		args = append(args, *filter.Category)
	}
	if filter.RunID != nil {
		query.WriteString(" AND last_scrape_run_id = ?")
		args = append(args, *filter.RunID)
	}
	if filter.Status != nil {
		query.WriteString(" AND last_scrape_status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY last_checked_at DESC, vertical, ref")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*harvest.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

// Upsert creates or updates the entity for in inside one transaction.
func (s *EntityStore) Upsert(ctx context.Context, in harvest.UpsertInput) (*harvest.UpsertResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "begin upsert %s/%s", in.Vertical, in.Ref)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanEntity(tx.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE vertical = ? AND ref = ?`, in.Vertical, in.Ref))
	if errors.Is(err, sql.ErrNoRows) {
		existing = nil
	} else if err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "load %s/%s", in.Vertical, in.Ref)
	}

	next, res := harvest.PlanUpsert(existing, in, s.now())

	fields, err := json.Marshal(next.Fields)
	if err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "encode fields for %s/%s", in.Vertical, in.Ref)
	}

	if existing == nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO entities (`+entityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			next.Vertical, next.Ref, next.Category, next.Subcategory, string(fields), next.FieldsHash, next.ImageURL,
			formatTime(next.CreatedAt), formatTime(next.UpdatedAt), formatTime(next.LastCheckedAt),
			string(next.LastScrapeStatus), next.LastScrapeMessage, next.LastScrapeRunID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE entities
			SET category = ?, subcategory = ?, fields = ?, fields_hash = ?,
				updated_at = ?, last_checked_at = ?,
				last_scrape_status = ?, last_scrape_message = ?, last_scrape_run_id = ?
			WHERE vertical = ? AND ref = ?
		`, next.Category, next.Subcategory, string(fields), next.FieldsHash,
			formatTime(next.UpdatedAt), formatTime(next.LastCheckedAt),
			string(next.LastScrapeStatus), next.LastScrapeMessage, next.LastScrapeRunID,
			next.Vertical, next.Ref)
	}
	if err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "write %s/%s", in.Vertical, in.Ref)
	}

	if err := tx.Commit(); err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "commit %s/%s", in.Vertical, in.Ref)
	}
	return res, nil
}

// SetImageURL records the entity's published image.
func (s *EntityStore) SetImageURL(ctx context.Context, vertical, ref, url string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE entities SET image_url = ? WHERE vertical = ? AND ref = ?`, url, vertical, ref)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "set image for %s/%s", vertical, ref)
	}
	return requireRow(result, vertical, ref)
}

// MarkError stamps an error outcome on an existing entity.
func (s *EntityStore) MarkError(ctx context.Context, vertical, ref, runID, message string, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entities
		SET last_checked_at = ?, last_scrape_status = ?, last_scrape_message = ?, last_scrape_run_id = ?
		WHERE vertical = ? AND ref = ?
	`, formatTime(now), string(harvest.StatusError), message, runID, vertical, ref)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "mark error for %s/%s", vertical, ref)
	}
	return requireRow(result, vertical, ref)
}

func (s *EntityStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func requireRow(result sql.Result, vertical, ref string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	return nil
}
