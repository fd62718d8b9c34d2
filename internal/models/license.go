package models

import "time"

// Plan is a subscription tier.
type Plan string

const (
	PlanFree    Plan = "Gratuit"
	PlanBasic   Plan = "Basique"
	PlanPro     Plan = "Pro"
	PlanPremium Plan = "Premium"
)

// IsFree reports whether the plan is the free tier. Free licenses never expire
// for validity purposes.
func (p Plan) IsFree() bool {
	return p == PlanFree
}

// License is the per-user license sub-record.
type License struct {
	UserID        string    `json:"userId"`
	Plan          Plan      `json:"plan"`
	MessageCount  int       `json:"messageCount"`
	MessageLimit  int       `json:"messageLimit"`
	ExpiresAt     time.Time `json:"expiresAt"`
	IsActive      bool      `json:"isActive"`
	LastResetDate time.Time `json:"lastResetDate"`
	LicenseKey    string    `json:"licenseKey,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Version increases by one on every write; zero means the record has not
	// been stored yet.
	Version int64 `json:"-"`
}

// MessageCounter is returned by the increment flow.
type MessageCounter struct {
	MessageCount int `json:"messageCount"`
	MessageLimit int `json:"messageLimit"`
}
