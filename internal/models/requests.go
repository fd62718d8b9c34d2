package models

// VerifyLicenseRequest is the body of POST /api/license/verify.
type VerifyLicenseRequest struct {
	Email      string `json:"email" validate:"required,email"`
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
}

type ActivateLicenseRequest struct {
	Email      string `json:"email" validate:"required,email"`
	LicenseKey string `json:"licenseKey" validate:"required"`
	DeviceID   string `json:"deviceId"`
}

type IncrementMessageCountRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AcknowledgeWarningRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserActionRequest targets a user by email for moderation actions.
type UserActionRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"max=500"`
}

type CreateWarningRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=2000"`
}

// CreateLicenseKeyRequest describes a key to mint. Exactly one of ExpiresAt or
// DurationDays drives the granted expiry; ExpiresAt wins when both are set.
type CreateLicenseKeyRequest struct {
	Plan         Plan   `json:"plan" validate:"required,oneof=Gratuit Basique Pro Premium"`
	MessageLimit int    `json:"messageLimit" validate:"gte=0"`
	DurationDays int    `json:"durationDays" validate:"required_without=ExpiresAt,gte=0,lte=3650"`
	ExpiresAt    string `json:"expiresAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type SetMaintenanceRequest struct {
	Enabled *bool  `json:"enabled" validate:"required"`
	Message string `json:"message" validate:"max=500"`
}

// AdminVerification is the body returned by GET /api/admin/verify.
type AdminVerification struct {
	IsAdmin bool   `json:"isAdmin"`
	UID     string `json:"uid,omitempty"`
	Email   string `json:"email,omitempty"`
}
