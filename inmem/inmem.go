// Package inmem provides in-memory implementations of the harvest storage
// interfaces. It backs tests and dry runs; nothing survives the process.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
)

// Ensure Store implements the storage interfaces.
var (
	_ harvest.EntityStore = (*Store)(nil)
	_ harvest.AuditLog    = (*Store)(nil)
)

type key struct {
	vertical string
	ref      string
}

// Store holds entities and audit entries behind one mutex, which makes
// every operation atomic per entity.
type Store struct {
	mu       sync.Mutex
	entities map[key]*harvest.Entity
	logs     []*harvest.AuditEntry

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		entities: make(map[key]*harvest.Entity),
		Now:      time.Now,
	}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Store) FindEntity(_ context.Context, vertical, ref string) (*harvest.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[key{vertical, ref}]
	if !ok {
		return nil, harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	return cloneEntity(e), nil
}

func (s *Store) FindEntities(_ context.Context, filter harvest.EntityFilter) ([]*harvest.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*harvest.Entity
	for _, e := range s.entities {
		if filter.Vertical != nil && e.Vertical != *filter.Vertical {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		if filter.RunID != nil && e.LastScrapeRunID != *filter.RunID {
			continue
		}
		if filter.Status != nil && e.LastScrapeStatus != *filter.Status {
			continue
		}
		out = append(out, cloneEntity(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastCheckedAt.Equal(out[j].LastCheckedAt) {
			return out[i].LastCheckedAt.After(out[j].LastCheckedAt)
		}
		if out[i].Vertical != out[j].Vertical {
			return out[i].Vertical < out[j].Vertical
		}
		return out[i].Ref < out[j].Ref
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func (s *Store) Upsert(_ context.Context, in harvest.UpsertInput) (*harvest.UpsertResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{in.Vertical, in.Ref}
	next, res := harvest.PlanUpsert(s.entities[k], in, s.now())
	s.entities[k] = next
	return res, nil
}

func (s *Store) SetImageURL(_ context.Context, vertical, ref, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[key{vertical, ref}]
	if !ok {
		return harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	e.ImageURL = url
	return nil
}

func (s *Store) MarkError(_ context.Context, vertical, ref, runID, message string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[key{vertical, ref}]
	if !ok {
		return harvest.Errorf(harvest.ENOTFOUND, "entity %s/%s not found", vertical, ref)
	}
	e.LastCheckedAt = now.UTC()
	e.LastScrapeStatus = harvest.StatusError
	e.LastScrapeMessage = message
	e.LastScrapeRunID = runID
	return nil
}

func (s *Store) AppendLog(_ context.Context, entry *harvest.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	cp := *entry
	s.logs = append(s.logs, &cp)
	return nil
}

func (s *Store) FindLogs(_ context.Context, filter harvest.AuditFilter) ([]*harvest.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*harvest.AuditEntry
	for _, e := range s.logs {
		if filter.RunID != nil && e.RunID != *filter.RunID {
			continue
		}
		if filter.Vertical != nil && e.Vertical != *filter.Vertical {
			continue
		}
		if filter.Ref != nil && e.Ref != *filter.Ref {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return page(out, filter.Offset, filter.Limit), nil
}

func cloneEntity(e *harvest.Entity) *harvest.Entity {
	cp := *e
	cp.Fields = e.Fields.Clone()
	return &cp
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
