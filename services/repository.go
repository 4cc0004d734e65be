package services

import (
	"context"
	"sort"

	"journal-workflow-api/models"
)

// Aggregate is the unit of transactional consistency: one manuscript together
// with everything that hangs off it.
type Aggregate struct {
	Manuscript  *models.Manuscript
	Assignments []*models.ReviewAssignment
	Decisions   []*models.EditorialDecision
	History     []*models.ManuscriptStatusHistory
}

// ManuscriptFilter narrows List queries. Zero values match everything.
type ManuscriptFilter struct {
	Status      models.ManuscriptStatus
	SubmitterID string
	Limit       int
}

// Repository persists aggregates. Implementations must save an aggregate
// atomically and reject a Save whose expected version is stale.
type Repository interface {
	Create(ctx context.Context, agg *Aggregate) error
	Load(ctx context.Context, manuscriptID string) (*Aggregate, error)
	Save(ctx context.Context, agg *Aggregate, expectedVersion int64) error
	ManuscriptIDForAssignment(ctx context.Context, assignmentID string) (string, error)
	ListManuscripts(ctx context.Context, filter ManuscriptFilter) ([]*models.Manuscript, error)
	ListAssignmentsByReviewer(ctx context.Context, reviewerID string) ([]*models.ReviewAssignment, error)
}

func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	c := &Aggregate{
		Manuscript:  a.Manuscript.Clone(),
		Assignments: make([]*models.ReviewAssignment, len(a.Assignments)),
		Decisions:   make([]*models.EditorialDecision, len(a.Decisions)),
		History:     make([]*models.ManuscriptStatusHistory, len(a.History)),
	}
	for i, as := range a.Assignments {
		c.Assignments[i] = as.Clone()
	}
	for i, d := range a.Decisions {
		c.Decisions[i] = d.Clone()
	}
	for i, h := range a.History {
		entry := *h
		c.History[i] = &entry
	}
	return c
}

// Round is the review round currently open (or last closed) on the manuscript.
func (a *Aggregate) Round() int {
	return a.Manuscript.CurrentRevision
}

func (a *Aggregate) Assignment(id string) *models.ReviewAssignment {
	for _, as := range a.Assignments {
		if as.ID == id {
			return as
		}
	}
	return nil
}

// ActiveAssignments returns Pending and Accepted assignments that are not archived.
func (a *Aggregate) ActiveAssignments() []*models.ReviewAssignment {
	out := make([]*models.ReviewAssignment, 0, len(a.Assignments))
	for _, as := range a.Assignments {
		if as.IsActive() {
			out = append(out, as)
		}
	}
	return out
}

// RoundAssignments returns the non-archived assignments of the given round.
func (a *Aggregate) RoundAssignments(round int) []*models.ReviewAssignment {
	out := make([]*models.ReviewAssignment, 0, len(a.Assignments))
	for _, as := range a.Assignments {
		if as.Round == round && !as.Archived {
			out = append(out, as)
		}
	}
	return out
}

func (a *Aggregate) DecisionForRound(round int) *models.EditorialDecision {
	for i := len(a.Decisions) - 1; i >= 0; i-- {
		if a.Decisions[i].Round == round {
			return a.Decisions[i]
		}
	}
	return nil
}

func (a *Aggregate) LastHistory() *models.ManuscriptStatusHistory {
	if len(a.History) == 0 {
		return nil
	}
	return a.History[len(a.History)-1]
}

// HasReviewer reports whether userID has ever been assigned to the manuscript.
func (a *Aggregate) HasReviewer(userID string) bool {
	for _, as := range a.Assignments {
		if as.ReviewerID == userID {
			return true
		}
	}
	return false
}

func sortAssignments(list []*models.ReviewAssignment) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].AssignedDate.Before(list[j].AssignedDate)
	})
}
