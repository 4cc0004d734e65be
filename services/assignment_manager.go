package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"journal-workflow-api/models"
	"journal-workflow-api/utils"
)

// AssignmentRequest is the editor's input to Assign. A zero DueDate means the
// journal's default review window.
type AssignmentRequest struct {
	ReviewerID string    `json:"reviewer_id"`
	DueDate    time.Time `json:"due_date"`
}

// ReviewSubmission is the reviewer's input to SubmitReview.
type ReviewSubmission struct {
	Recommendation       models.Recommendation `json:"recommendation"`
	Comments             string                `json:"comments"`
	ConfidentialComments string                `json:"confidential_comments"`
}

// Assign invites a reviewer. The first assignment on a freshly submitted
// manuscript opens the review. Assignments made while a revision is pending
// belong to the round the resubmission will open.
func (e *WorkflowEngine) Assign(ctx context.Context, actor models.Actor, manuscriptID string, req AssignmentRequest) (*models.ReviewAssignment, error) {
	if !actor.IsEditor() {
		return nil, unauthorizedError("only editors can assign reviewers")
	}
	reviewerID := utils.SanitizeInput(req.ReviewerID)
	if reviewerID == "" {
		return nil, validationError("reviewer_id is required")
	}

	var created *models.ReviewAssignment
	_, err := e.mutate(ctx, actor, manuscriptID, func(agg *Aggregate) ([]models.WorkflowEvent, error) {
		m := agg.Manuscript
		switch m.Status {
		case models.StatusSubmitted, models.StatusUnderReview, models.StatusRevisionRequired:
		default:
			return nil, invalidTransitionError(m.Status, "reviewers cannot be assigned while %s", m.Status)
		}
		if m.IsAuthor(reviewerID) {
			return nil, validationError("reviewer %s is an author of the manuscript", reviewerID)
		}

		round := agg.Round()
		if m.Status == models.StatusRevisionRequired {
			round++
		}
		for _, as := range agg.RoundAssignments(round) {
			if as.ReviewerID == reviewerID && as.IsActive() {
				return nil, duplicateAssignmentError(reviewerID, as.ID)
			}
		}

		now := e.now()
		due := req.DueDate
		if due.IsZero() {
			due = now.Add(e.settings.ReviewWindow())
		}
		due = due.UTC()
		if !due.After(now) {
			return nil, validationError("due date must be in the future")
		}

		created = &models.ReviewAssignment{
			ID:           e.newID(),
			ManuscriptID: m.ID,
			ReviewerID:   reviewerID,
			Round:        round,
			AssignedBy:   actor.UserID,
			AssignedDate: now,
			DueDate:      due,
			Status:       models.AssignmentPending,
			UpdatedAt:    now,
		}
		agg.Assignments = append(agg.Assignments, created)

		if m.Status == models.StatusSubmitted {
			if err := e.transition(agg, models.StatusUnderReview, actor, "first reviewer assigned"); err != nil {
				return nil, err
			}
		}

		ev := e.event(agg, models.EventReviewerAssigned, actor, reviewerID)
		ev.AssignmentID = created.ID
		ev.Detail = "Please respond by " + utils.FormatDisplayDate(due) + "."
		return []models.WorkflowEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// mutateAssignment resolves the manuscript owning assignmentID and runs fn on
// the assignment under that manuscript's lock.
func (e *WorkflowEngine) mutateAssignment(ctx context.Context, actor models.Actor, assignmentID string, fn func(agg *Aggregate, as *models.ReviewAssignment) ([]models.WorkflowEvent, error)) (*models.ReviewAssignment, error) {
	manuscriptID, err := e.repo.ManuscriptIDForAssignment(ctx, assignmentID)
	if err != nil {
		return nil, e.lookupError(actor, "assignment", assignmentID, err)
	}

	agg, err := e.mutate(ctx, actor, manuscriptID, func(agg *Aggregate) ([]models.WorkflowEvent, error) {
		as := agg.Assignment(assignmentID)
		if as == nil {
			return nil, e.lookupError(actor, "assignment", assignmentID, ErrNotFound)
		}
		return fn(agg, as)
	})
	if err != nil {
		return nil, err
	}

	as := agg.Assignment(assignmentID)
	if as == nil {
		return nil, fmt.Errorf("assignment %s missing after commit", assignmentID)
	}
	out := as.Clone()
	out.Overdue = out.IsOverdue(e.now())
	return out, nil
}

// Respond records the reviewer's answer to an invitation. A reviewer may
// decline at any point before the review is completed.
func (e *WorkflowEngine) Respond(ctx context.Context, actor models.Actor, assignmentID string, accept bool) (*models.ReviewAssignment, error) {
	return e.mutateAssignment(ctx, actor, assignmentID, func(agg *Aggregate, as *models.ReviewAssignment) ([]models.WorkflowEvent, error) {
		if as.ReviewerID != actor.UserID {
			return nil, errForbidden()
		}

		target := models.AssignmentDeclined
		eventType := models.EventAssignmentDeclined
		if accept {
			target = models.AssignmentAccepted
			eventType = models.EventAssignmentAccepted
		}
		if as.Status == target {
			return nil, errNoChange
		}
		if as.Archived {
			return nil, invalidTransitionError(agg.Manuscript.Status, "assignment %s belongs to a closed round", as.ID)
		}

		legal := as.Status == models.AssignmentPending ||
			(!accept && as.Status == models.AssignmentAccepted)
		if !legal {
			return nil, invalidTransitionError(agg.Manuscript.Status, "assignment %s is %s", as.ID, as.Status)
		}

		now := e.now()
		as.Status = target
		as.RespondedAt = &now
		as.UpdatedAt = now

		ev := e.event(agg, eventType, actor, as.AssignedBy)
		ev.AssignmentID = as.ID
		ev.Detail = string(target)
		return []models.WorkflowEvent{ev}, nil
	})
}

// SubmitReview completes an accepted assignment. Missing the due date is
// recorded but does not block the submission.
func (e *WorkflowEngine) SubmitReview(ctx context.Context, actor models.Actor, assignmentID string, review ReviewSubmission) (*models.ReviewAssignment, error) {
	if _, ok := models.ParseRecommendation(string(review.Recommendation)); !ok {
		return nil, validationError("unknown recommendation %q", review.Recommendation)
	}
	comments := strings.TrimSpace(review.Comments)
	confidential := strings.TrimSpace(review.ConfidentialComments)

	return e.mutateAssignment(ctx, actor, assignmentID, func(agg *Aggregate, as *models.ReviewAssignment) ([]models.WorkflowEvent, error) {
		if as.ReviewerID != actor.UserID {
			return nil, errForbidden()
		}
		if as.Status == models.AssignmentCompleted && as.Recommendation != nil &&
			*as.Recommendation == review.Recommendation && deref(as.Comments) == comments {
			return nil, errNoChange
		}
		if as.Status != models.AssignmentAccepted {
			return nil, invalidTransitionError(agg.Manuscript.Status, "assignment %s is %s, not accepted", as.ID, as.Status)
		}
		if as.Archived || as.Round != agg.Round() || agg.Manuscript.Status != models.StatusUnderReview {
			return nil, invalidTransitionError(agg.Manuscript.Status, "assignment %s is not part of an open review round", as.ID)
		}

		now := e.now()
		recommendation := review.Recommendation
		as.Status = models.AssignmentCompleted
		as.Recommendation = &recommendation
		as.CompletedAt = &now
		as.UpdatedAt = now
		as.SubmittedLate = now.After(as.DueDate)
		if comments != "" {
			as.Comments = &comments
		}
		if confidential != "" {
			as.ConfidentialComments = &confidential
		}

		ev := e.event(agg, models.EventReviewSubmitted, actor, as.AssignedBy)
		ev.AssignmentID = as.ID
		ev.Detail = string(recommendation)
		return []models.WorkflowEvent{ev}, nil
	})
}

// Withdraw cancels an invitation the reviewer has not answered yet.
func (e *WorkflowEngine) Withdraw(ctx context.Context, actor models.Actor, assignmentID string) (*models.ReviewAssignment, error) {
	if !actor.IsEditor() {
		return nil, unauthorizedError("only editors can withdraw assignments")
	}
	return e.mutateAssignment(ctx, actor, assignmentID, func(agg *Aggregate, as *models.ReviewAssignment) ([]models.WorkflowEvent, error) {
		if as.Status == models.AssignmentWithdrawn {
			return nil, errNoChange
		}
		if as.Status != models.AssignmentPending {
			return nil, invalidTransitionError(agg.Manuscript.Status, "assignment %s is %s; only pending invitations can be withdrawn", as.ID, as.Status)
		}

		now := e.now()
		as.Status = models.AssignmentWithdrawn
		as.UpdatedAt = now

		ev := e.event(agg, models.EventAssignmentWithdrawn, actor, as.ReviewerID)
		ev.AssignmentID = as.ID
		return []models.WorkflowEvent{ev}, nil
	})
}

// ListActive returns the manuscript's pending and accepted assignments with
// their overdue flag evaluated now. Editors see every assignment; a reviewer
// sees only their own.
func (e *WorkflowEngine) ListActive(ctx context.Context, actor models.Actor, manuscriptID string) ([]*models.ReviewAssignment, error) {
	agg, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !actor.IsEditor() && !agg.HasReviewer(actor.UserID) {
		return nil, errForbidden()
	}

	now := e.now()
	active := make([]*models.ReviewAssignment, 0)
	for _, as := range agg.ActiveAssignments() {
		if !actor.IsEditor() && as.ReviewerID != actor.UserID {
			continue
		}
		as.Overdue = as.IsOverdue(now)
		active = append(active, as)
	}
	sortAssignments(active)
	return active, nil
}

// ReviewerQueue lists every assignment addressed to the calling reviewer.
func (e *WorkflowEngine) ReviewerQueue(ctx context.Context, actor models.Actor) ([]*models.ReviewAssignment, error) {
	if !actor.HasRole(models.RoleReviewer) {
		return nil, unauthorizedError("only reviewers have a review queue")
	}
	assignments, err := e.repo.ListAssignmentsByReviewer(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	for _, as := range assignments {
		as.Overdue = as.IsOverdue(now)
	}
	return assignments, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
