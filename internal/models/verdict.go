package models

import "time"

type AlertKind string

const (
	AlertModal  AlertKind = "modal"
	AlertBanner AlertKind = "banner"
)

type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
)

// Alert codes.
const (
	AlertLicenseExpired   = "license_expired"
	AlertLicenseExpiring  = "license_expiring"
	AlertAccountBanned    = "account_banned"
	AlertAccountSuspended = "account_suspended"
	AlertAdminWarning     = "admin_warning"
)

// Alert is a user-facing notice derived from the license and account state.
// Non-dismissible modals block the client UI until the state changes.
type Alert struct {
	Code        string        `json:"code"`
	Kind        AlertKind     `json:"type"`
	Severity    AlertSeverity `json:"severity"`
	Title       string        `json:"title"`
	Message     string        `json:"message"`
	Dismissible bool          `json:"dismissible"`
	WarningID   string        `json:"warningId,omitempty"`
}

// Verdict is the computed license state for one user at one instant.
type Verdict struct {
	Valid          bool      `json:"valid"`
	Reason         string    `json:"reason,omitempty"`
	HasLicense     bool      `json:"hasLicense"`
	Plan           Plan      `json:"plan"`
	MessageCount   int       `json:"messageCount"`
	MessageLimit   int       `json:"messageLimit"`
	CanSendMessage bool      `json:"canSendMessage"`
	ExpiresAt      time.Time `json:"expiresAt"`
	DaysRemaining  int       `json:"daysRemaining"`
	IsExpired      bool      `json:"isExpired"`
	IsActive       bool      `json:"isActive"`
	IsBanned       bool      `json:"isBanned"`
	BanReason      string    `json:"banReason,omitempty"`
	IsSuspended    bool      `json:"isSuspended"`
	Alerts         []Alert   `json:"alerts"`
}

// VerificationResponse is the verdict merged with the process-wide and per-user notices.
type VerificationResponse struct {
	Verdict
	MaintenanceMode    bool      `json:"maintenanceMode"`
	MaintenanceMessage string    `json:"maintenanceMessage,omitempty"`
	Warnings           []Warning `json:"warnings"`
}
