package services

import (
	"context"
	"strings"
	"time"

	"journal-workflow-api/models"
	"journal-workflow-api/utils"
)

// Create validates a draft and stores it as a new manuscript in Draft status.
// The caller becomes the submitter and is treated as an author from then on.
func (e *WorkflowEngine) Create(ctx context.Context, actor models.Actor, draft models.ManuscriptDraft) (*models.Manuscript, error) {
	if !actor.HasRole(models.RoleAuthor) {
		return nil, unauthorizedError("only authors can create manuscripts")
	}

	manuscript, err := e.buildManuscript(actor, draft)
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{Manuscript: manuscript}
	agg.History = append(agg.History, &models.ManuscriptStatusHistory{
		HistoryID:    e.newID(),
		ManuscriptID: manuscript.ID,
		NewStatus:    models.StatusDraft,
		ChangedBy:    actor.UserID,
		CreatedAt:    manuscript.CreatedAt,
	})

	if err := e.repo.Create(ctx, agg); err != nil {
		return nil, err
	}
	e.emit(ctx, []models.WorkflowEvent{e.event(agg, models.EventManuscriptCreated, actor)})
	return manuscript.Clone(), nil
}

func (e *WorkflowEngine) buildManuscript(actor models.Actor, draft models.ManuscriptDraft) (*models.Manuscript, error) {
	title := utils.SanitizeInput(draft.Title)
	abstract := utils.SanitizeInput(draft.Abstract)
	section := utils.SanitizeInput(draft.Section)

	if title == "" {
		return nil, validationError("title is required")
	}
	if abstract == "" {
		return nil, validationError("abstract is required")
	}
	if section != "" && !e.settings.HasSection(section) {
		return nil, validationError("unknown section %q", section)
	}

	keywords := utils.NormalizeKeywords(draft.Keywords)
	if e.settings.MaxKeywords > 0 && len(keywords) > e.settings.MaxKeywords {
		return nil, validationError("at most %d keywords are allowed", e.settings.MaxKeywords)
	}

	authors, err := normalizeAuthors(draft.Authors)
	if err != nil {
		return nil, err
	}

	now := e.now()
	return &models.Manuscript{
		ID:          e.newID(),
		Title:       title,
		Abstract:    abstract,
		Keywords:    keywords,
		Section:     section,
		Authors:     authors,
		Status:      models.StatusDraft,
		SubmitterID: actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func normalizeAuthors(input []models.Author) ([]models.Author, error) {
	if len(input) == 0 {
		return nil, validationError("at least one author is required")
	}

	authors := make([]models.Author, 0, len(input))
	corresponding := 0
	for i, a := range input {
		a.Name = utils.SanitizeInput(a.Name)
		a.Email = strings.ToLower(utils.SanitizeInput(a.Email))
		a.Affiliation = utils.SanitizeInput(a.Affiliation)
		a.ORCID = strings.ToUpper(utils.SanitizeInput(a.ORCID))
		a.UserID = utils.SanitizeInput(a.UserID)

		if a.Name == "" {
			return nil, validationError("author %d: name is required", i+1)
		}
		if a.Email != "" && !utils.ValidateEmail(a.Email) {
			return nil, validationError("author %d: invalid e-mail %q", i+1, a.Email)
		}
		if a.ORCID != "" && !utils.ValidateORCID(a.ORCID) {
			return nil, validationError("author %d: invalid ORCID %q", i+1, a.ORCID)
		}
		if a.IsCorresponding {
			corresponding++
			if a.Email == "" {
				return nil, validationError("author %d: corresponding author needs an e-mail", i+1)
			}
		}
		authors = append(authors, a)
	}
	if corresponding != 1 {
		return nil, validationError("exactly one corresponding author is required, got %d", corresponding)
	}
	return authors, nil
}

// AttachFile uploads content to the blob store and records it under role.
// Files can only change while the manuscript is with its authors.
func (e *WorkflowEngine) AttachFile(ctx context.Context, actor models.Actor, manuscriptID string, role models.FileRole, name, contentType string, data []byte) (*models.Manuscript, error) {
	if e.blobs == nil {
		return nil, validationError("file storage is not configured")
	}
	if _, ok := models.ParseFileRole(string(role)); !ok {
		return nil, validationError("unknown file role %q", role)
	}
	if len(data) == 0 {
		return nil, validationError("file is empty")
	}
	if int64(len(data)) > e.settings.MaxUploadBytes() {
		return nil, validationError("file exceeds %d MB", e.settings.MaxUploadMB)
	}
	if !e.settings.AllowsMediaType(contentType) {
		return nil, validationError("content type %q is not accepted", contentType)
	}

	// Authorise before any bytes reach the blob store.
	snapshot, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !snapshot.Manuscript.IsAuthor(actor.UserID) {
		return nil, errForbidden()
	}
	if err := checkEditable(snapshot.Manuscript); err != nil {
		return nil, err
	}

	ref, err := e.blobs.Put(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	agg, err := e.mutate(ctx, actor, manuscriptID, func(agg *Aggregate) ([]models.WorkflowEvent, error) {
		if err := checkEditable(agg.Manuscript); err != nil {
			return nil, err
		}
		agg.Manuscript.PutFile(models.ManuscriptFile{
			Role:        role,
			BlobRef:     ref,
			Name:        utils.SanitizeFileName(name),
			ContentType: contentType,
			Size:        int64(len(data)),
			UploadedAt:  e.now(),
		})
		ev := e.event(agg, models.EventFileAttached, actor)
		ev.Detail = string(role)
		return []models.WorkflowEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Manuscript, nil
}

func checkEditable(m *models.Manuscript) error {
	if m.Status != models.StatusDraft && m.Status != models.StatusRevisionRequired {
		return invalidTransitionError(m.Status, "files can only change in draft or while a revision is required")
	}
	return nil
}

// OpenFile returns the stored content of the file under role.
func (e *WorkflowEngine) OpenFile(ctx context.Context, actor models.Actor, manuscriptID string, role models.FileRole) (models.ManuscriptFile, []byte, error) {
	agg, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return models.ManuscriptFile{}, nil, err
	}
	if !e.canView(actor, agg) {
		return models.ManuscriptFile{}, nil, errForbidden()
	}
	file, ok := agg.Manuscript.File(role)
	if !ok {
		return models.ManuscriptFile{}, nil, notFoundError("file", string(role))
	}
	if e.blobs == nil {
		return models.ManuscriptFile{}, nil, validationError("file storage is not configured")
	}
	data, err := e.blobs.Get(ctx, file.BlobRef)
	if err != nil {
		return models.ManuscriptFile{}, nil, err
	}
	return file, data, nil
}

// Submit hands a draft to the editors, or returns a revised manuscript to
// review. Re-submitting an already submitted manuscript is a no-op.
func (e *WorkflowEngine) Submit(ctx context.Context, actor models.Actor, manuscriptID string) (*models.Manuscript, error) {
	agg, err := e.mutate(ctx, actor, manuscriptID, func(agg *Aggregate) ([]models.WorkflowEvent, error) {
		m := agg.Manuscript
		if !m.IsAuthor(actor.UserID) {
			return nil, errForbidden()
		}

		switch m.Status {
		case models.StatusDraft:
			return e.submitDraft(agg, actor)
		case models.StatusRevisionRequired:
			return e.resubmit(agg, actor)
		case models.StatusSubmitted:
			return nil, errNoChange
		case models.StatusUnderReview:
			if last := agg.LastHistory(); last != nil && last.OldStatus != nil &&
				*last.OldStatus == models.StatusRevisionRequired && last.ChangedBy == actor.UserID {
				return nil, errNoChange
			}
		}
		return nil, invalidTransitionError(m.Status, "manuscript cannot be submitted while %s", m.Status)
	})
	if err != nil {
		return nil, err
	}
	return agg.Manuscript, nil
}

func (e *WorkflowEngine) submitDraft(agg *Aggregate, actor models.Actor) ([]models.WorkflowEvent, error) {
	m := agg.Manuscript
	if strings.TrimSpace(m.Title) == "" || strings.TrimSpace(m.Abstract) == "" {
		return nil, validationError("title and abstract are required")
	}
	if _, err := normalizeAuthors(m.Authors); err != nil {
		return nil, err
	}
	if _, ok := m.File(models.FileManuscript); !ok {
		return nil, validationError("a manuscript file is required before submission")
	}

	now := e.now()
	m.SubmittedAt = &now
	m.RevisionHistory = append(m.RevisionHistory, snapshotRevision(m, actor, now, ""))
	if err := e.transition(agg, models.StatusSubmitted, actor, "submitted"); err != nil {
		return nil, err
	}
	return []models.WorkflowEvent{
		e.event(agg, models.EventManuscriptSubmitted, actor, m.AuthorUserIDs()...),
	}, nil
}

func (e *WorkflowEngine) resubmit(agg *Aggregate, actor models.Actor) ([]models.WorkflowEvent, error) {
	m := agg.Manuscript
	_, hasRevision := m.File(models.FileRevision)
	_, hasManuscript := m.File(models.FileManuscript)
	if !hasRevision && !hasManuscript {
		return nil, validationError("a revised manuscript file is required before resubmission")
	}

	decisionID := ""
	if d := agg.DecisionForRound(agg.Round()); d != nil {
		decisionID = d.ID
	}

	m.CurrentRevision++
	for _, as := range agg.Assignments {
		if as.Round < m.CurrentRevision {
			as.Archived = true
		}
	}

	now := e.now()
	m.RevisionHistory = append(m.RevisionHistory, snapshotRevision(m, actor, now, decisionID))
	if err := e.transition(agg, models.StatusUnderReview, actor, "resubmitted"); err != nil {
		return nil, err
	}

	ev := e.event(agg, models.EventManuscriptResubmitted, actor, m.AuthorUserIDs()...)
	ev.DecisionID = decisionID
	return []models.WorkflowEvent{ev}, nil
}

func snapshotRevision(m *models.Manuscript, actor models.Actor, at time.Time, decisionID string) models.Revision {
	return models.Revision{
		Number:      m.CurrentRevision,
		Abstract:    m.Abstract,
		Files:       append([]models.ManuscriptFile(nil), m.Files...),
		SubmittedBy: actor.UserID,
		SubmittedAt: at,
		DecisionID:  decisionID,
	}
}

// Get returns a manuscript to its editors, authors and reviewers.
func (e *WorkflowEngine) Get(ctx context.Context, actor models.Actor, manuscriptID string) (*models.Manuscript, error) {
	agg, err := e.read(ctx, actor, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !e.canView(actor, agg) {
		return nil, errForbidden()
	}
	return agg.Manuscript, nil
}

// Publish sets the terminal metadata of an accepted manuscript. The DOI and
// publication date are written exactly once.
func (e *WorkflowEngine) Publish(ctx context.Context, actor models.Actor, manuscriptID, doi string, publishedDate time.Time) (*models.Manuscript, error) {
	if !actor.IsEditor() {
		return nil, unauthorizedError("only editors can publish")
	}
	doi = strings.TrimSpace(doi)
	if !utils.ValidateDOI(doi) {
		return nil, validationError("invalid DOI %q", doi)
	}

	agg, err := e.mutate(ctx, actor, manuscriptID, func(agg *Aggregate) ([]models.WorkflowEvent, error) {
		m := agg.Manuscript
		if m.Status == models.StatusPublished && m.DOI != nil && strings.EqualFold(*m.DOI, doi) {
			return nil, errNoChange
		}
		if m.Status != models.StatusAccepted {
			return nil, invalidTransitionError(m.Status, "only accepted manuscripts can be published")
		}

		at := publishedDate
		if at.IsZero() {
			at = e.now()
		}
		at = at.UTC()
		m.DOI = &doi
		m.PublishedAt = &at
		if err := e.transition(agg, models.StatusPublished, actor, "published"); err != nil {
			return nil, err
		}
		ev := e.event(agg, models.EventManuscriptPublished, actor, m.AuthorUserIDs()...)
		ev.Detail = "https://doi.org/" + doi
		return []models.WorkflowEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Manuscript, nil
}

// List returns every manuscript to editors and an author's own manuscripts to authors.
func (e *WorkflowEngine) List(ctx context.Context, actor models.Actor, status models.ManuscriptStatus, limit int) ([]*models.Manuscript, error) {
	filter := ManuscriptFilter{Status: status, Limit: limit}
	switch {
	case actor.IsEditor():
	case actor.HasRole(models.RoleAuthor):
		filter.SubmitterID = actor.UserID
	default:
		return nil, errForbidden()
	}
	return e.repo.ListManuscripts(ctx, filter)
}
