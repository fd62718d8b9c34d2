package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/licensegate/backend/internal/models"
)

const (
	// FreeTierMessageLimit is the quota of a user with no license record.
	FreeTierMessageLimit = 10
	// FreeTierValidity is the expiry horizon reported for the implicit free tier.
	FreeTierValidity = 365 * 24 * time.Hour
	// ExpiryWarningDays is the window in which an expiring paid license raises a banner.
	ExpiryWarningDays = 7

	defaultBanReason = "non spécifiée"
)

// Validation reasons.
const (
	ReasonBanned        = "banned"
	ReasonSuspended     = "suspended"
	ReasonExpired       = "expired"
	ReasonQuotaExceeded = "quota_exceeded"
)

// Validation is the validity decision for a license.
type Validation struct {
	Valid  bool
	Reason string
}

// IsExpired reports whether expiresAt lies strictly before now.
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

// DaysRemaining is the number of started days left before expiresAt. It is
// zero or negative once the license has expired.
func DaysRemaining(expiresAt, now time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

// hasQuota reports whether one more message fits. A non-positive limit means unlimited.
func hasQuota(messageCount, messageLimit int) bool {
	return messageLimit <= 0 || messageCount < messageLimit
}

// Validate decides license validity. Checks run in precedence order; the first
// failing one names the reason.
func Validate(plan models.Plan, messageCount, messageLimit int, expiresAt time.Time, isBanned, isSuspended bool, now time.Time) Validation {
	switch {
	case isBanned:
		return Validation{Reason: ReasonBanned}
	case isSuspended:
		return Validation{Reason: ReasonSuspended}
	case !plan.IsFree() && IsExpired(expiresAt, now):
		return Validation{Reason: ReasonExpired}
	case !hasQuota(messageCount, messageLimit):
		return Validation{Reason: ReasonQuotaExceeded}
	}
	return Validation{Valid: true}
}

// FreeTierLicense is the implicit license of a user without a license record.
func FreeTierLicense(user *models.User, now time.Time) *models.License {
	return &models.License{
		UserID:        user.ID,
		Plan:          models.PlanFree,
		MessageCount:  user.MessageCount,
		MessageLimit:  FreeTierMessageLimit,
		ExpiresAt:     now.Add(FreeTierValidity),
		IsActive:      true,
		LastResetDate: now,
	}
}

// Evaluate computes the verdict for user holding lic at now. A nil lic is
// evaluated as the implicit free tier.
func Evaluate(lic *models.License, user *models.User, now time.Time) models.Verdict {
	hasLicense := lic != nil
	if !hasLicense {
		lic = FreeTierLicense(user, now)
	}

	// Expiry only matters for paid plans.
	expired := !lic.Plan.IsFree() && IsExpired(lic.ExpiresAt, now)
	days := DaysRemaining(lic.ExpiresAt, now)
	v := Validate(lic.Plan, lic.MessageCount, lic.MessageLimit, lic.ExpiresAt, user.IsBanned, user.IsSuspended, now)

	verdict := models.Verdict{
		Valid:          v.Valid,
		Reason:         v.Reason,
		HasLicense:     hasLicense,
		Plan:           lic.Plan,
		MessageCount:   lic.MessageCount,
		MessageLimit:   lic.MessageLimit,
		CanSendMessage: v.Valid && hasQuota(lic.MessageCount, lic.MessageLimit) && !expired,
		ExpiresAt:      lic.ExpiresAt,
		DaysRemaining:  days,
		IsExpired:      expired,
		IsActive:       lic.IsActive,
		IsBanned:       user.IsBanned,
		BanReason:      user.BanReason,
		IsSuspended:    user.IsSuspended,
		Alerts:         deriveAlerts(lic, user, expired, days),
	}
	return verdict
}

func deriveAlerts(lic *models.License, user *models.User, expired bool, days int) []models.Alert {
	alerts := make([]models.Alert, 0, 2)

	if !lic.Plan.IsFree() {
		if expired {
			alerts = append(alerts, models.Alert{
				Code:     models.AlertLicenseExpired,
				Kind:     models.AlertModal,
				Severity: models.SeverityCritical,
				Title:    "Licence expirée",
				Message:  "Votre licence a expiré. Renouvelez-la pour continuer à envoyer des messages.",
			})
		} else if days > 0 && days <= ExpiryWarningDays {
			alerts = append(alerts, models.Alert{
				Code:        models.AlertLicenseExpiring,
				Kind:        models.AlertBanner,
				Severity:    models.SeverityWarning,
				Title:       "Licence bientôt expirée",
				Message:     fmt.Sprintf("Votre licence expire dans %d jour(s).", days),
				Dismissible: true,
			})
		}
	}

	if user.IsBanned {
		reason := strings.TrimSpace(user.BanReason)
		if reason == "" {
			reason = defaultBanReason
		}
		alerts = append(alerts, models.Alert{
			Code:     models.AlertAccountBanned,
			Kind:     models.AlertModal,
			Severity: models.SeverityCritical,
			Title:    "Compte banni",
			Message:  fmt.Sprintf("Votre compte a été banni. Raison : %s", reason),
		})
	}

	if user.IsSuspended {
		alerts = append(alerts, models.Alert{
			Code:     models.AlertAccountSuspended,
			Kind:     models.AlertModal,
			Severity: models.SeverityCritical,
			Title:    "Compte suspendu",
			Message:  "Votre compte est suspendu. Contactez le support pour plus d'informations.",
		})
	}

	return alerts
}

// WarningAlerts turns unread admin warnings into dismissible modals.
func WarningAlerts(warnings []models.Warning) []models.Alert {
	alerts := make([]models.Alert, 0, len(warnings))
	for _, w := range warnings {
		if w.Read {
			continue
		}
		alerts = append(alerts, models.Alert{
			Code:        models.AlertAdminWarning,
			Kind:        models.AlertModal,
			Severity:    models.SeverityWarning,
			Title:       "Avertissement",
			Message:     w.Message,
			Dismissible: true,
			WarningID:   w.ID,
		})
	}
	return alerts
}
