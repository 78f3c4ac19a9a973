package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/jackc/pgx/v5"
)

// Compile-time interface verification.
var _ harvest.EntityStore = (*EntityStore)(nil)

const entityColumns = `vertical, ref, category, subcategory, fields, fields_hash, image_url,
	created_at, updated_at, last_checked_at,
	last_scrape_status, last_scrape_message, last_scrape_run_id`

// EntityStore implements harvest.EntityStore using PostgreSQL. Upsert locks
// the entity row for the length of its transaction.
type EntityStore struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(db *DB) *EntityStore {
	return &EntityStore{db: db, Now: time.Now}
}

func scanEntity(row pgx.Row) (*harvest.Entity, error) {
	var e harvest.Entity
	var fields []byte
	var status string
	if err := row.Scan(&e.Vertical, &e.Ref, &e.Category, &e.Subcategory, &fields, &e.FieldsHash, &e.ImageURL,
		&e.CreatedAt, &e.UpdatedAt, &e.LastCheckedAt,
		&status, &e.LastScrapeMessage, &e.LastScrapeRunID); err != nil {
		return nil, err
	}
	e.LastScrapeStatus = harvest.Status(status)
	e.CreatedAt, e.UpdatedAt, e.LastCheckedAt = e.CreatedAt.UTC(), e.UpdatedAt.UTC(), e.LastCheckedAt.UTC()
	if err := json.Unmarshal(fields, &e.Fields); err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "corrupt fields for %s/%s", e.Vertical, e.Ref)
	}
	if e.Fields == nil {
		e.Fields = harvest.Fields{}
	}
	return &e, nil
}

// FindEntity retrieves an entity by its key.
func (s *EntityStore) FindEntity(ctx context.Context, vertical, ref string) (*harvest.Entity, error) {
	e, err := scanEntity(s.db.pool.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE vertical = $1 AND ref = $2`, vertical, ref))
	if errors.Is(err, pgx.ErrNoRows) {
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
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	query.WriteString(`SELECT ` + entityColumns + ` FROM entities WHERE true`)

	if filter.Vertical != nil {
		query.WriteString(" AND vertical = " + arg(*filter.Vertical))
	}
	if filter.Category != nil {
		query.WriteString(" AND category = " + arg(*filter.Category))
	}
	if filter.RunID != nil {
		query.WriteString(" AND last_scrape_run_id = " + arg(*filter.RunID))
	}
	if filter.Status != nil {
		query.WriteString(" AND last_scrape_status = " + arg(string(*filter.Status)))
	}

	query.WriteString(" ORDER BY last_checked_at DESC, vertical, ref")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		query.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := s.db.pool.Query(ctx, query.String(), args...)
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

// Upsert creates or updates the entity for in. The existing row is read
// with SELECT ... FOR UPDATE; a concurrent create is resolved by
// ON CONFLICT DO NOTHING followed by a locked reselect.
func (s *EntityStore) Upsert(ctx context.Context, in harvest.UpsertInput) (*harvest.UpsertResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "begin upsert %s/%s", in.Vertical, in.Ref)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := selectForUpdate(ctx, tx, in.Vertical, in.Ref)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, res := harvest.PlanUpsert(existing, in, now)
	if existing == nil {
		inserted, err := insertEntity(ctx, tx, next)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// Another writer created the row first; diff against it.
			if existing, err = selectForUpdate(ctx, tx, in.Vertical, in.Ref); err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, harvest.Errorf(harvest.ECONFLICT, "entity %s/%s vanished during upsert", in.Vertical, in.Ref)
			}
			next, res = harvest.PlanUpsert(existing, in, now)
		}
	}
	if existing != nil {
		if err := updateEntity(ctx, tx, next); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "commit %s/%s", in.Vertical, in.Ref)
	}
	return res, nil
}

func selectForUpdate(ctx context.Context, tx pgx.Tx, vertical, ref string) (*harvest.Entity, error) {
	e, err := scanEntity(tx.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE vertical = $1 AND ref = $2 FOR UPDATE`, vertical, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, harvest.WrapError(harvest.ESTORE, err, "load %s/%s", vertical, ref)
	}
	return e, nil
}

func insertEntity(ctx context.Context, tx pgx.Tx, e *harvest.Entity) (bool, error) {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return false, harvest.WrapError(harvest.ESTORE, err, "encode fields for %s/%s", e.Vertical, e.Ref)
	}
	tag, err := tx.Exec(ctx, `INSERT INTO entities (`+entityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (vertical, ref) DO NOTHING`,
		e.Vertical, e.Ref, e.Category, e.Subcategory, string(fields), e.FieldsHash, e.ImageURL,
		e.CreatedAt, e.UpdatedAt, e.LastCheckedAt,
		string(e.LastScrapeStatus), e.LastScrapeMessage, e.LastScrapeRunID)
	if err != nil {
		return false, harvest.WrapError(harvest.ESTORE, err, "insert %s/%s", e.Vertical, e.Ref)
	}
	return tag.RowsAffected() == 1, nil
}

func updateEntity(ctx context.Context, tx pgx.Tx, e *harvest.Entity) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "encode fields for %s/%s", e.Vertical, e.Ref)
	}
	_, err = tx.Exec(ctx, `
		UPDATE entities
		SET category = $3, subcategory = $4, fields = $5, fields_hash = $6,
			updated_at = $7, last_checked_at = $8,
			last_scrape_status = $9, last_scrape_message = $10, last_scrape_run_id = $11
		WHERE vertical = $1 AND ref = $2
	`, e.Vertical, e.Ref, e.Category, e.Subcategory, string(fields), e.FieldsHash,
		e.UpdatedAt, e.LastCheckedAt,
		string(e.LastScrapeStatus), e.LastScrapeMessage, e.LastScrapeRunID)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "update %s/%s", e.Vertical, e.Ref)
	}
	return nil
}

// SetImageURL records the entity's published image.
func (s *EntityStore) SetImageURL(ctx context.Context, vertical, ref, url string) error {
	tag, err := s.db.pool.Exec(ctx, `UPDATE entities SET image_url = $3 WHERE vertical = $1 AND ref = $2`, vertical, ref, url)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "set image for %s/%s", vertical, ref)
	}
	if tag.RowsAffected() == 0 {
		return harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	return nil
}

// MarkError stamps an error outcome on an existing entity.
func (s *EntityStore) MarkError(ctx context.Context, vertical, ref, runID, message string, now time.Time) error {
	tag, err := s.db.pool.Exec(ctx, `
		UPDATE entities
		SET last_checked_at = $3, last_scrape_status = $4, last_scrape_message = $5, last_scrape_run_id = $6
		WHERE vertical = $1 AND ref = $2
	`, vertical, ref, now.UTC(), string(harvest.StatusError), message, runID)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "mark error for %s/%s", vertical, ref)
	}
	if tag.RowsAffected() == 0 {
		return harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	return nil
}

func (s *EntityStore) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	// Postgres keeps microseconds.
	return now().UTC().Truncate(time.Microsecond)
}
