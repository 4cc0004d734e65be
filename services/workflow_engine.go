package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"journal-workflow-api/config"
	"journal-workflow-api/models"

	"github.com/google/uuid"
)

// transitions is the complete set of status edges. Every status change goes
// through aggregate transition, which refuses anything not listed here.
var transitions = map[models.ManuscriptStatus][]models.ManuscriptStatus{
	models.StatusDraft:            {models.StatusSubmitted},
	models.StatusSubmitted:        {models.StatusUnderReview},
	models.StatusUnderReview:      {models.StatusAccepted, models.StatusRejected, models.StatusRevisionRequired},
	models.StatusRevisionRequired: {models.StatusUnderReview},
	models.StatusAccepted:         {models.StatusPublished},
}

// CanTransition reports whether from -> to is an edge of the workflow.
func CanTransition(from, to models.ManuscriptStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// outcomeStatus maps an editorial outcome onto the status it leads to.
func outcomeStatus(outcome models.Recommendation) models.ManuscriptStatus {
	switch outcome {
	case models.RecommendAccept:
		return models.StatusAccepted
	case models.RecommendReject:
		return models.StatusRejected
	default:
		return models.StatusRevisionRequired
	}
}

const maxSaveAttempts = 3

// errNoChange is returned by a mutation that recognised a replay of an
// operation already applied; the stored aggregate is returned unchanged.
var errNoChange = errors.New("no change")

type mutation func(agg *Aggregate) ([]models.WorkflowEvent, error)

// WorkflowEngine is the only writer of manuscript, assignment and decision state.
type WorkflowEngine struct {
	repo     Repository
	blobs    BlobStore
	sink     NotificationSink
	settings config.JournalSettings
	locks    *manuscriptLocks
	now      func() time.Time
	newID    func() string
}

type EngineOption func(*WorkflowEngine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *WorkflowEngine) { e.now = now }
}

func WithIDGenerator(newID func() string) EngineOption {
	return func(e *WorkflowEngine) { e.newID = newID }
}

func WithSettings(settings config.JournalSettings) EngineOption {
	return func(e *WorkflowEngine) { e.settings = settings }
}

func WithBlobStore(blobs BlobStore) EngineOption {
	return func(e *WorkflowEngine) { e.blobs = blobs }
}

// NewWorkflowEngine wires the engine over repo. A nil sink logs events.
func NewWorkflowEngine(repo Repository, sink NotificationSink, opts ...EngineOption) (*WorkflowEngine, error) {
	if repo == nil {
		return nil, errors.New("workflow engine requires a repository")
	}
	if sink == nil {
		sink = LogSink{}
	}
	e := &WorkflowEngine{
		repo:     repo,
		sink:     sink,
		settings: config.DefaultJournalSettings(),
		locks:    newManuscriptLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the journal settings the engine validates against.
func (e *WorkflowEngine) Settings() config.JournalSettings { return e.settings }

// mutate runs fn against a private copy of the manuscript aggregate while
// holding the manuscript's exclusive lock, saves the copy, then emits the
// events fn produced. Nothing is saved or emitted if fn fails.
func (e *WorkflowEngine) mutate(ctx context.Context, actor models.Actor, manuscriptID string, fn mutation) (*Aggregate, error) {
	release := e.locks.Lock(manuscriptID)
	defer release()

	for attempt := 1; ; attempt++ {
		current, err := e.repo.Load(ctx, manuscriptID)
		if err != nil {
			return nil, e.lookupError(actor, "manuscript", manuscriptID, err)
		}

		working := current.Clone()
		events, err := fn(working)
		if errors.Is(err, errNoChange) {
			return current, nil
		}
		if err != nil {
			return nil, err
		}

		working.Manuscript.UpdatedAt = e.now()
		if err := e.repo.Save(ctx, working, current.Manuscript.Version); err != nil {
			if errors.Is(err, ErrStaleAggregate) && attempt < maxSaveAttempts {
				log.Printf("manuscript %s changed underneath us, retrying (attempt %d)", manuscriptID, attempt)
				continue
			}
			return nil, fmt.Errorf("save manuscript %s: %w", manuscriptID, err)
		}

		e.emit(ctx, events)
		return working, nil
	}
}

// read loads a consistent snapshot under the shared lock.
func (e *WorkflowEngine) read(ctx context.Context, actor models.Actor, manuscriptID string) (*Aggregate, error) {
	release := e.locks.RLock(manuscriptID)
	defer release()

	agg, err := e.repo.Load(ctx, manuscriptID)
	if err != nil {
		return nil, e.lookupError(actor, "manuscript", manuscriptID, err)
	}
	return agg, nil
}

// lookupError translates a repository miss. Only editors learn that an id
// does not exist; everyone else is told the request is forbidden.
func (e *WorkflowEngine) lookupError(actor models.Actor, entity, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		if actor.IsEditor() {
			return notFoundError(entity, id)
		}
		return errForbidden()
	}
	return err
}

func (e *WorkflowEngine) emit(ctx context.Context, events []models.WorkflowEvent) {
	ctx, cancel := deliveryContext(ctx)
	defer cancel()
	for _, event := range events {
		if err := e.sink.Emit(ctx, event); err != nil {
			log.Printf("notification emit failed (type=%s manuscript=%s): %v",
				event.Type, event.ManuscriptID, err)
		}
	}
}

func (e *WorkflowEngine) event(agg *Aggregate, eventType models.EventType, actor models.Actor, recipients ...string) models.WorkflowEvent {
	return models.WorkflowEvent{
		Type:         eventType,
		ManuscriptID: agg.Manuscript.ID,
		ActorID:      actor.UserID,
		Timestamp:    e.now(),
		Title:        agg.Manuscript.Title,
		Recipients:   recipients,
	}
}

// transition moves the manuscript along one edge of the workflow and records
// the change in the status history.
func (e *WorkflowEngine) transition(agg *Aggregate, to models.ManuscriptStatus, actor models.Actor, reason string) error {
	from := agg.Manuscript.Status
	if !CanTransition(from, to) {
		return invalidTransitionError(from, "cannot move from %s to %s", from, to)
	}
	agg.Manuscript.Status = to

	entry := &models.ManuscriptStatusHistory{
		HistoryID:    e.newID(),
		ManuscriptID: agg.Manuscript.ID,
		OldStatus:    &from,
		NewStatus:    to,
		ChangedBy:    actor.UserID,
		CreatedAt:    e.now(),
	}
	if reason != "" {
		entry.Reason = &reason
	}
	agg.History = append(agg.History, entry)
	return nil
}

func (e *WorkflowEngine) canView(actor models.Actor, agg *Aggregate) bool {
	return actor.IsEditor() || agg.Manuscript.IsAuthor(actor.UserID) || agg.HasReviewer(actor.UserID)
}

// DecisionRequest is the editor's input to Decide.
type DecisionRequest struct {
	Outcome        models.Recommendation `json:"outcome"`
	Comments       string                `json:"comments"`
	Override       bool                  `json:"override"`
	OverrideReason string                `json:"override_reason"`
}

// Decide closes the current review round with the editor's chosen outcome.
// Every active assignment of the round must be completed unless the editor
// overrides with a reason; the decision cites the completed assignments.
func (e *WorkflowEngine) Decide(ctx context.Context, actor models.Actor, manuscriptID string, req DecisionRequest) (*models.EditorialDecision, error) {
	if !actor.IsEditor() {
		return nil, unauthorizedError("only editors can record decisions")
	}
	if _, ok := models.ParseRecommendation(string(req.Outcome)); !ok {
		return nil, validationError("unknown outcome %q", req.Outcome)
	}
	overrideReason := strings.TrimSpace(req.OverrideReason)
	if req.Override && overrideReason == "" {
		return nil, validationError("override requires a reason")
	}
	comments := strings.TrimSpace(req.Comments)

	agg, err := e.mutate(ctx, actor, manuscriptID, func(agg *Aggregate) ([]models.WorkflowEvent, error) {
		m := agg.Manuscript
		round := agg.Round()
		target := outcomeStatus(req.Outcome)

		if m.Status != models.StatusUnderReview {
			if prior := agg.DecisionForRound(round); prior != nil && m.Status == target &&
				prior.Outcome == req.Outcome && prior.EditorID == actor.UserID {
				return nil, errNoChange
			}
			return nil, invalidTransitionError(m.Status, "decisions can only be made while under review")
		}

		var outstanding []string
		completed := make([]string, 0)
		for _, as := range agg.RoundAssignments(round) {
			switch {
			case as.IsActive():
				outstanding = append(outstanding, as.ID)
			case as.Status == models.AssignmentCompleted:
				completed = append(completed, as.ID)
			}
		}
		if !req.Override && (len(outstanding) > 0 || len(completed) == 0) {
			return nil, incompleteReviewError(outstanding)
		}

		now := e.now()
		decision := &models.EditorialDecision{
			ID:                 e.newID(),
			ManuscriptID:       m.ID,
			EditorID:           actor.UserID,
			Round:              round,
			DecidedDate:        now,
			Outcome:            req.Outcome,
			BasedOnAssignments: completed,
			Override:           req.Override,
		}
		if req.Override {
			decision.OverrideReason = &overrideReason
		}
		if comments != "" {
			decision.Comments = &comments
		}

		// Reviews still open when an override closes the round no longer count.
		for _, as := range agg.RoundAssignments(round) {
			if as.IsActive() {
				as.Archived = true
			}
		}

		if err := e.transition(agg, target, actor, "decision:"+string(req.Outcome)); err != nil {
			return nil, err
		}
		agg.Decisions = append(agg.Decisions, decision)

		eventType := models.EventDecisionMade
		if target == models.StatusRevisionRequired {
			eventType = models.EventRevisionRequested
		}
		ev := e.event(agg, eventType, actor, m.AuthorUserIDs()...)
		ev.DecisionID = decision.ID
		ev.Detail = string(req.Outcome)
		return []models.WorkflowEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}

	decision := agg.DecisionForRound(agg.Round())
	if decision == nil {
		return nil, fmt.Errorf("decision for manuscript %s missing after commit", manuscriptID)
	}
	return decision.Clone(), nil
}

// ManuscriptView is one consistent snapshot of a manuscript. Decisions and
// Timeline are nil when the actor may not see them.
type ManuscriptView struct {
	Manuscript *models.Manuscript
	Decisions  []*models.EditorialDecision
	Timeline   []*models.ManuscriptStatusHistory
}

// View reads the manuscript, its decisions and its status history from a
// single load. Reviewers get the manuscript alone.
func (e *WorkflowEngine) View(ctx context.Context, actor models.Actor, manuscriptID string) (*ManuscriptView, error) {
	agg, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !e.canView(actor, agg) {
		return nil, errForbidden()
	}
	view := &ManuscriptView{Manuscript: agg.Manuscript}
	if canSeeRecord(actor, agg) {
		view.Decisions = append([]*models.EditorialDecision{}, agg.Decisions...)
		view.Timeline = append([]*models.ManuscriptStatusHistory{}, agg.History...)
	}
	return view, nil
}

// canSeeRecord reports whether actor may read decisions and status history.
func canSeeRecord(actor models.Actor, agg *Aggregate) bool {
	return actor.IsEditor() || agg.Manuscript.IsAuthor(actor.UserID)
}

// Decisions returns the audit trail of editorial decisions.
func (e *WorkflowEngine) Decisions(ctx context.Context, actor models.Actor, manuscriptID string) ([]*models.EditorialDecision, error) {
	agg, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !canSeeRecord(actor, agg) {
		return nil, errForbidden()
	}
	return agg.Decisions, nil
}

// Timeline returns the recorded status changes of a manuscript.
func (e *WorkflowEngine) Timeline(ctx context.Context, actor models.Actor, manuscriptID string) ([]*models.ManuscriptStatusHistory, error) {
	agg, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !canSeeRecord(actor, agg) {
		return nil, errForbidden()
	}
	return agg.History, nil
}
