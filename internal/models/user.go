package models

import "time"

// User is an administrator account for the local auth provider.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthUser is the identity returned by an authenticator.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session records when an administrator signed in.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	LoginTime time.Time `json:"loginTime"`
}
