package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"journal-workflow-api/models"

	"github.com/stretchr/testify/require"
)

var (
	author    = models.Actor{UserID: "author-1", Roles: []models.Role{models.RoleAuthor}}
	coAuthor  = models.Actor{UserID: "author-2", Roles: []models.Role{models.RoleAuthor}}
	outsider  = models.Actor{UserID: "author-9", Roles: []models.Role{models.RoleAuthor}}
	editor    = models.Actor{UserID: "editor-1", Roles: []models.Role{models.RoleEditor}}
	admin     = models.Actor{UserID: "admin-1", Roles: []models.Role{models.RoleAdmin}}
	reviewerA = models.Actor{UserID: "rev-a", Roles: []models.Role{models.RoleReviewer}}
	reviewerB = models.Actor{UserID: "rev-b", Roles: []models.Role{models.RoleReviewer}}
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.WorkflowEvent
	err    error
}

func (s *recordingSink) Emit(ctx context.Context, event models.WorkflowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) ofType(eventType models.EventType) []models.WorkflowEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WorkflowEvent
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	engine *WorkflowEngine
	repo   *InmemRepository
	sink   *recordingSink

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	blobs, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		repo: NewInmemRepository(),
		sink: &recordingSink{},
		now:  time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	}
	var seq atomic.Int64
	f.engine, err = NewWorkflowEngine(f.repo, f.sink,
		WithClock(f.clock),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) }),
		WithBlobStore(blobs),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testDraft() models.ManuscriptDraft {
	return models.ManuscriptDraft{
		Title:    "Test Paper",
		Abstract: "We study editorial workflows.",
		Keywords: []string{"peer review", "Peer Review", " workflow "},
		Section:  "Computer Science",
		Authors: []models.Author{
			{Name: "Ada Author", Email: "ada@example.org", UserID: author.UserID, IsCorresponding: true},
			{Name: "Co Author", Email: "co@example.org", UserID: coAuthor.UserID},
		},
	}
}

func (f *fixture) draft(t *testing.T) *models.Manuscript {
	t.Helper()
	m, err := f.engine.Create(context.Background(), author, testDraft())
	require.NoError(t, err)
	return m
}

func (f *fixture) attach(t *testing.T, id string, role models.FileRole) {
	t.Helper()
	_, err := f.engine.AttachFile(context.Background(), author, id, role, string(role)+".pdf", "application/pdf", []byte("%PDF-1.4 "+string(role)))
	require.NoError(t, err)
}

func (f *fixture) submitted(t *testing.T) string {
	t.Helper()
	m := f.draft(t)
	f.attach(t, m.ID, models.FileManuscript)
	_, err := f.engine.Submit(context.Background(), author, m.ID)
	require.NoError(t, err)
	return m.ID
}

func (f *fixture) assign(t *testing.T, manuscriptID string, reviewer models.Actor) *models.ReviewAssignment {
	t.Helper()
	as, err := f.engine.Assign(context.Background(), editor, manuscriptID, AssignmentRequest{ReviewerID: reviewer.UserID})
	require.NoError(t, err)
	return as
}

func (f *fixture) review(t *testing.T, assignmentID string, reviewer models.Actor, rec models.Recommendation) *models.ReviewAssignment {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.Respond(ctx, reviewer, assignmentID, true)
	require.NoError(t, err)
	as, err := f.engine.SubmitReview(ctx, reviewer, assignmentID, ReviewSubmission{
		Recommendation: rec,
		Comments:       "Review by " + reviewer.UserID,
	})
	require.NoError(t, err)
	return as
}

func requireKind(t *testing.T, err error, kind error) *WorkflowError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	werr, ok := AsWorkflowError(err)
	require.True(t, ok, "expected *WorkflowError, got %T", err)
	return werr
}
