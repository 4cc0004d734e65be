package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"journal-workflow-api/models"
)

// InmemRepository keeps aggregates in process memory. Every read and write
// copies the aggregate so callers never share state with the store.
type InmemRepository struct {
	mu          sync.RWMutex
	aggregates  map[string]*Aggregate
	assignments map[string]string // assignment id -> manuscript id
}

func NewInmemRepository() *InmemRepository {
	return &InmemRepository{
		aggregates:  make(map[string]*Aggregate),
		assignments: make(map[string]string),
	}
}

func (r *InmemRepository) Create(ctx context.Context, agg *Aggregate) error {
	if agg == nil || agg.Manuscript == nil {
		return fmt.Errorf("aggregate is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := agg.Manuscript.ID
	if _, exists := r.aggregates[id]; exists {
		return fmt.Errorf("manuscript %s already exists", id)
	}
	agg.Manuscript.Version = 1
	r.store(agg)
	return nil
}

func (r *InmemRepository) Load(ctx context.Context, manuscriptID string) (*Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg, ok := r.aggregates[manuscriptID]
	if !ok {
		return nil, ErrNotFound
	}
	return agg.Clone(), nil
}

func (r *InmemRepository) Save(ctx context.Context, agg *Aggregate, expectedVersion int64) error {
	if agg == nil || agg.Manuscript == nil {
		return fmt.Errorf("aggregate is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.aggregates[agg.Manuscript.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Manuscript.Version != expectedVersion {
		return ErrStaleAggregate
	}
	agg.Manuscript.Version = expectedVersion + 1
	r.store(agg)
	return nil
}

func (r *InmemRepository) store(agg *Aggregate) {
	stored := agg.Clone()
	r.aggregates[stored.Manuscript.ID] = stored
	for _, as := range stored.Assignments {
		r.assignments[as.ID] = stored.Manuscript.ID
	}
}

func (r *InmemRepository) ManuscriptIDForAssignment(ctx context.Context, assignmentID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.assignments[assignmentID]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (r *InmemRepository) ListManuscripts(ctx context.Context, filter ManuscriptFilter) ([]*models.Manuscript, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Manuscript, 0)
	for _, agg := range r.aggregates {
		m := agg.Manuscript
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.SubmitterID != "" && !m.IsAuthor(filter.SubmitterID) {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InmemRepository) ListAssignmentsByReviewer(ctx context.Context, reviewerID string) ([]*models.ReviewAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ReviewAssignment, 0)
	for _, agg := range r.aggregates {
		for _, as := range agg.Assignments {
			if as.ReviewerID == reviewerID {
				out = append(out, as.Clone())
			}
		}
	}
	sortAssignments(out)
	return out, nil
}
