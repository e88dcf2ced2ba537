package models

import "time"

// User roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User categories.
const (
	CategoryStudent      = "STUDENT"
	CategoryTeacher      = "TEACHER"
	CategoryProfessional = "PROFESSIONAL"
)

// User is a registered account that can submit solutions.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:USER" json:"role"`
	Category     string    `gorm:"size:32" json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the account has administrative privileges.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
