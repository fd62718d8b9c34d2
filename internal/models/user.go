package models

import (
	"time"
)

// User is the application-side account record, keyed by the identity provider UID.
// Records are created by the registration flow; this service only reads them and
// mutates the restriction flags.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	MessageCount int       `json:"messageCount"` // legacy counter used before licenses existed
	IsBanned     bool      `json:"isBanned"`
	BanReason    string    `json:"banReason,omitempty"`
	IsSuspended  bool      `json:"isSuspended"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRestrictions is the mutable moderation state of a user.
type UserRestrictions struct {
	IsBanned    bool   `json:"isBanned"`
	BanReason   string `json:"banReason,omitempty"`
	IsSuspended bool   `json:"isSuspended"`
}

// Restrictions returns the user's current moderation state.
func (u *User) Restrictions() UserRestrictions {
	return UserRestrictions{
		IsBanned:    u.IsBanned,
		BanReason:   u.BanReason,
		IsSuspended: u.IsSuspended,
	}
}

// ApplyRestrictions copies r onto the user.
func (u *User) ApplyRestrictions(r UserRestrictions) {
	u.IsBanned = r.IsBanned
	u.BanReason = r.BanReason
	u.IsSuspended = r.IsSuspended
}
