package models

import "time"

// ManuscriptStatusHistory tracks historical status changes for manuscripts.
type ManuscriptStatusHistory struct {
	HistoryID    string            `gorm:"primaryKey;column:history_id;size:36" json:"history_id"`
	ManuscriptID string            `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	OldStatus    *ManuscriptStatus `gorm:"column:old_status" json:"old_status"`
	NewStatus    ManuscriptStatus  `gorm:"column:new_status" json:"new_status"`
	ChangedBy    string            `gorm:"column:changed_by" json:"changed_by"`
	Reason       *string           `gorm:"column:reason" json:"reason"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for ManuscriptStatusHistory.
func (ManuscriptStatusHistory) TableName() string {
	return "manuscript_status_history"
}
