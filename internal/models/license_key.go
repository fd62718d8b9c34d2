package models

import "time"

// LicenseKey is a redeemable activation code. Key holds the normalized form
// (dashes stripped, upper-case).
type LicenseKey struct {
	ID           string     `json:"id"`
	Key          string     `json:"key"`
	Plan         Plan       `json:"plan"`
	MessageLimit int        `json:"messageLimit"`
	ExpiresAt    time.Time  `json:"expiresAt,omitempty"`
	DurationDays int        `json:"durationDays,omitempty"`
	IsActive     bool       `json:"isActive"`
	UsedBy       *string    `json:"usedBy,omitempty"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ClaimedByOther reports whether the key is already bound to a user other than userID.
func (k *LicenseKey) ClaimedByOther(userID string) bool {
	return k.UsedBy != nil && *k.UsedBy != "" && *k.UsedBy != userID
}

// ExpiryFrom returns the license expiry granted by this key when redeemed at now.
// A fixed ExpiresAt wins; otherwise DurationDays counts from the redemption time.
func (k *LicenseKey) ExpiryFrom(now time.Time) time.Time {
	if !k.ExpiresAt.IsZero() {
		return k.ExpiresAt
	}
	return now.AddDate(0, 0, k.DurationDays)
}
