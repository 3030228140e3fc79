package models

import "time"

// AdminUser is an account known to the auth collaborator. Any authenticated
// admin may override gallery ownership.
type AdminUser struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName pins the table name.
func (AdminUser) TableName() string {
	return "admin_users"
}

// Session is the authenticated state handed out by the auth collaborator.
// A nil *Session means "not signed in".
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenID     string    `json:"-"`
	UserID      uint      `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}
