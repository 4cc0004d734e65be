package models

import (
	"time"

	"gorm.io/datatypes"
)

// EditorialDecision closes a review round. It is never modified after creation.
type EditorialDecision struct {
	ID                 string                      `gorm:"primaryKey;column:id;size:36" json:"id"`
	ManuscriptID       string                      `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	EditorID           string                      `gorm:"column:editor_id" json:"editor_id"`
	Round              int                         `gorm:"column:round" json:"round"`
	DecidedDate        time.Time                   `gorm:"column:decided_date" json:"decided_date"`
	Outcome            Recommendation              `gorm:"column:outcome" json:"outcome"`
	BasedOnAssignments datatypes.JSONSlice[string] `gorm:"column:based_on_assignments" json:"based_on_assignments"`
	Override           bool                        `gorm:"column:override" json:"override"`
	OverrideReason     *string                     `gorm:"column:override_reason" json:"override_reason,omitempty"`
	Comments           *string                     `gorm:"column:comments;type:text" json:"comments,omitempty"`
}

func (EditorialDecision) TableName() string {
	return "editorial_decisions"
}

// Cites reports whether the decision rests on the given assignment.
func (d *EditorialDecision) Cites(assignmentID string) bool {
	for _, id := range d.BasedOnAssignments {
		if id == assignmentID {
			return true
		}
	}
	return false
}

func (d *EditorialDecision) Clone() *EditorialDecision {
	if d == nil {
		return nil
	}
	c := *d
	c.BasedOnAssignments = append(datatypes.JSONSlice[string](nil), d.BasedOnAssignments...)
	if d.OverrideReason != nil {
		s := *d.OverrideReason
		c.OverrideReason = &s
	}
	if d.Comments != nil {
		s := *d.Comments
		c.Comments = &s
	}
	return &c
}
