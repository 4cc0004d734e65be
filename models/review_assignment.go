package models

import "time"

// AssignmentStatus tracks a reviewer's progress on one assignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentWithdrawn AssignmentStatus = "withdrawn"
)

// Recommendation is both a reviewer recommendation and an editorial outcome.
type Recommendation string

const (
	RecommendAccept        Recommendation = "accept"
	RecommendMinorRevision Recommendation = "minor_revision"
	RecommendMajorRevision Recommendation = "major_revision"
	RecommendReject        Recommendation = "reject"
)

func ParseRecommendation(raw string) (Recommendation, bool) {
	switch Recommendation(raw) {
	case RecommendAccept, RecommendMinorRevision, RecommendMajorRevision, RecommendReject:
		return Recommendation(raw), true
	}
	return "", false
}

// ReviewAssignment is one reviewer's engagement with one round of a manuscript.
type ReviewAssignment struct {
	ID                   string           `gorm:"primaryKey;column:id;size:36" json:"id"`
	ManuscriptID         string           `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	ReviewerID           string           `gorm:"column:reviewer_id;index" json:"reviewer_id"`
	Round                int              `gorm:"column:round" json:"round"`
	AssignedBy           string           `gorm:"column:assigned_by" json:"assigned_by"`
	AssignedDate         time.Time        `gorm:"column:assigned_date" json:"assigned_date"`
	DueDate              time.Time        `gorm:"column:due_date" json:"due_date"`
	RespondedAt          *time.Time       `gorm:"column:responded_at" json:"responded_at,omitempty"`
	CompletedAt          *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Status               AssignmentStatus `gorm:"column:status" json:"status"`
	Recommendation       *Recommendation  `gorm:"column:recommendation" json:"recommendation,omitempty"`
	Comments             *string          `gorm:"column:comments;type:text" json:"comments,omitempty"`
	ConfidentialComments *string          `gorm:"column:confidential_comments;type:text" json:"confidential_comments,omitempty"`
	SubmittedLate        bool             `gorm:"column:submitted_late" json:"submitted_late"`
	Archived             bool             `gorm:"column:archived" json:"archived"`
	UpdatedAt            time.Time        `gorm:"column:updated_at" json:"updated_at"`

	// Overdue is computed at read time and never persisted.
	Overdue bool `gorm:"-" json:"overdue"`
}

func (ReviewAssignment) TableName() string {
	return "review_assignments"
}

// IsActive reports whether the assignment still counts toward its round.
func (a *ReviewAssignment) IsActive() bool {
	if a.Archived {
		return false
	}
	return a.Status == AssignmentPending || a.Status == AssignmentAccepted
}

// IsOverdue reports whether an active assignment has passed its due date.
func (a *ReviewAssignment) IsOverdue(now time.Time) bool {
	return a.IsActive() && now.After(a.DueDate)
}

func (a *ReviewAssignment) Clone() *ReviewAssignment {
	if a == nil {
		return nil
	}
	c := *a
	if a.RespondedAt != nil {
		t := *a.RespondedAt
		c.RespondedAt = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	if a.Recommendation != nil {
		r := *a.Recommendation
		c.Recommendation = &r
	}
	if a.Comments != nil {
		s := *a.Comments
		c.Comments = &s
	}
	if a.ConfidentialComments != nil {
		s := *a.ConfidentialComments
		c.ConfidentialComments = &s
	}
	return &c
}
