package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash, never the plaintext.
//
// ResetTokenHash and ResetTokenExpires are either both set (a reset is
// outstanding) or both nil.
type User struct {
	ID                string
	Email             string
	Password          string
	Name              string
	IsActive          bool
	CreatedAt         time.Time
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
}

// HasPendingReset reports whether a reset token is outstanding at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now)
}
