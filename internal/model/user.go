package model

import (
	"errors"
	"time"
)

// Passwords are kept in the clear; hashing is out of scope for this app.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Validate() error {
	if u.ID <= 0 {
		return ErrInvalidID
	}
	if u.Email == "" {
		return errors.New("model: user email is required")
	}
	if u.Password == "" {
		return errors.New("model: user password is required")
	}
	if u.CreatedAt.IsZero() {
		return errors.New("model: user created_at is required")
	}
	return nil
}
