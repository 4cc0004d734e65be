package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ManuscriptStatus is a state of the editorial workflow.
type ManuscriptStatus string

const (
	StatusDraft            ManuscriptStatus = "draft"
	StatusSubmitted        ManuscriptStatus = "submitted"
	StatusUnderReview      ManuscriptStatus = "under_review"
	StatusRevisionRequired ManuscriptStatus = "revision_required"
	StatusAccepted         ManuscriptStatus = "accepted"
	StatusRejected         ManuscriptStatus = "rejected"
	StatusPublished        ManuscriptStatus = "published"
)

// IsTerminal reports whether no further transitions are permitted.
func (s ManuscriptStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusPublished
}

// IsDecided reports whether the manuscript content is frozen.
func (s ManuscriptStatus) IsDecided() bool {
	return s == StatusAccepted || s.IsTerminal()
}

// FileRole classifies an uploaded manuscript file.
type FileRole string

const (
	FileManuscript    FileRole = "manuscript"
	FileCoverLetter   FileRole = "cover_letter"
	FileSupplementary FileRole = "supplementary"
	FileRevision      FileRole = "revision"
)

func ParseFileRole(raw string) (FileRole, bool) {
	switch FileRole(raw) {
	case FileManuscript, FileCoverLetter, FileSupplementary, FileRevision:
		return FileRole(raw), true
	}
	return "", false
}

// BlobRef is an opaque reference returned by the blob store.
type BlobRef string

// Author is a value embedded in the manuscript, not a shared entity.
type Author struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Affiliation     string `json:"affiliation"`
	ORCID           string `json:"orcid,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	IsCorresponding bool   `json:"is_corresponding"`
}

// ManuscriptFile records a stored file under its role.
type ManuscriptFile struct {
	Role        FileRole  `json:"role"`
	BlobRef     BlobRef   `json:"blob_ref"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Revision is a snapshot taken each time the manuscript is (re)submitted.
type Revision struct {
	Number      int              `json:"number"`
	Abstract    string           `json:"abstract"`
	Files       []ManuscriptFile `json:"files"`
	SubmittedBy string           `json:"submitted_by"`
	SubmittedAt time.Time        `json:"submitted_at"`
	DecisionID  string           `json:"decision_id,omitempty"`
}

type Manuscript struct {
	ID              string                              `gorm:"primaryKey;column:id;size:36" json:"id"`
	Title           string                              `gorm:"column:title" json:"title"`
	Abstract        string                              `gorm:"column:abstract;type:text" json:"abstract"`
	Keywords        datatypes.JSONSlice[string]         `gorm:"column:keywords" json:"keywords"`
	Section         string                              `gorm:"column:section" json:"section"`
	Authors         datatypes.JSONSlice[Author]         `gorm:"column:authors" json:"authors"`
	Files           datatypes.JSONSlice[ManuscriptFile] `gorm:"column:files" json:"files"`
	Status          ManuscriptStatus                    `gorm:"column:status;index" json:"status"`
	RevisionHistory datatypes.JSONSlice[Revision]       `gorm:"column:revision_history" json:"revision_history"`
	CurrentRevision int                                 `gorm:"column:current_revision" json:"current_revision"`
	SubmitterID     string                              `gorm:"column:submitter_id;index" json:"submitter_id"`
	DOI             *string                             `gorm:"column:doi" json:"doi,omitempty"`
	PublishedAt     *time.Time                          `gorm:"column:published_at" json:"published_at,omitempty"`
	SubmittedAt     *time.Time                          `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	Version         int64                               `gorm:"column:version" json:"-"`
	CreatedAt       time.Time                           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time                           `gorm:"column:updated_at" json:"updated_at"`
}

func (Manuscript) TableName() string {
	return "manuscripts"
}

// IsAuthor reports whether userID submitted or is listed on the manuscript.
func (m *Manuscript) IsAuthor(userID string) bool {
	if userID == "" {
		return false
	}
	if m.SubmitterID == userID {
		return true
	}
	for _, a := range m.Authors {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// CorrespondingAuthor returns the single author marked corresponding.
func (m *Manuscript) CorrespondingAuthor() (Author, bool) {
	for _, a := range m.Authors {
		if a.IsCorresponding {
			return a, true
		}
	}
	return Author{}, false
}

// File returns the file stored under role.
func (m *Manuscript) File(role FileRole) (ManuscriptFile, bool) {
	for _, f := range m.Files {
		if f.Role == role {
			return f, true
		}
	}
	return ManuscriptFile{}, false
}

// PutFile stores f, replacing any file with the same role.
func (m *Manuscript) PutFile(f ManuscriptFile) {
	for i := range m.Files {
		if m.Files[i].Role == f.Role {
			m.Files[i] = f
			return
		}
	}
	m.Files = append(m.Files, f)
}

// AuthorUserIDs returns the linked user ids of the submitter and all authors.
func (m *Manuscript) AuthorUserIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(m.Authors)+1)
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	add(m.SubmitterID)
	for _, a := range m.Authors {
		add(a.UserID)
	}
	return ids
}

// Clone returns a deep copy; JSON slices are copied so callers can mutate freely.
func (m *Manuscript) Clone() *Manuscript {
	if m == nil {
		return nil
	}
	c := *m
	c.Keywords = append(datatypes.JSONSlice[string](nil), m.Keywords...)
	c.Authors = append(datatypes.JSONSlice[Author](nil), m.Authors...)
	c.Files = append(datatypes.JSONSlice[ManuscriptFile](nil), m.Files...)
	c.RevisionHistory = make(datatypes.JSONSlice[Revision], len(m.RevisionHistory))
	for i, r := range m.RevisionHistory {
		r.Files = append([]ManuscriptFile(nil), r.Files...)
		c.RevisionHistory[i] = r
	}
	if m.DOI != nil {
		doi := *m.DOI
		c.DOI = &doi
	}
	if m.PublishedAt != nil {
		t := *m.PublishedAt
		c.PublishedAt = &t
	}
	if m.SubmittedAt != nil {
		t := *m.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

// ManuscriptDraft is the input accepted by create.
type ManuscriptDraft struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Keywords []string `json:"keywords"`
	Section  string   `json:"section"`
	Authors  []Author `json:"authors"`
}
