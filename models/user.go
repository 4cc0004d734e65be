package models

import (
	"time"
)

// User is a directory entry used to address notification e-mail.
// Credentials live with the identity provider, not here.
type User struct {
	UserID      string     `gorm:"primaryKey;column:user_id;size:64" json:"user_id"`
	DisplayName string     `gorm:"column:display_name" json:"display_name"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Affiliation *string    `gorm:"column:affiliation" json:"affiliation,omitempty"`
	ORCID       *string    `gorm:"column:orcid" json:"orcid,omitempty"`
	CreateAt    *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
