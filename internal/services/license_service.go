package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/models"
)

// maxWriteAttempts bounds optimistic-concurrency retries on license writes.
const maxWriteAttempts = 3

// LicenseService runs the verify, activate and increment flows.
type LicenseService struct {
	store       LicenseStore
	maintenance MaintenanceReader
	now         func() time.Time
}

// NewLicenseService wires the flows to store. maintenance may be nil, in which
// case the maintenance flag is read from the store directly.
func NewLicenseService(store LicenseStore, maintenance MaintenanceReader) *LicenseService {
	if maintenance == nil {
		maintenance = store
	}
	return &LicenseService{
		store:       store,
		maintenance: maintenance,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source (tests).
func (s *LicenseService) SetClock(now func() time.Time) {
	s.now = now
}

// Verify returns the verdict for the user owning email. deviceID is accepted
// for API compatibility but not bound to anything.
func (s *LicenseService) Verify(ctx context.Context, email, deviceID string) (*models.VerificationResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	lic, err := s.store.GetLicense(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, ErrLicenseNotFound) {
			return nil, fmt.Errorf("verify: load license: %w", err)
		}
		lic = nil
	}

	if deviceID != "" {
		log.WithField("user_id", user.ID).Debugf("[LicenseService] verify with device_id=%s (not enforced)", deviceID)
	}

	return s.buildResponse(ctx, user, lic)
}

// Activate redeems licenseKey for the user owning email and returns the fresh verdict.
func (s *LicenseService) Activate(ctx context.Context, email, licenseKey, deviceID string) (*models.VerificationResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}

	normalized := NormalizeLicenseKey(licenseKey)
	if normalized == "" {
		return nil, fmt.Errorf("activate: %w", ErrLicenseKeyNotFound)
	}

	key, err := s.store.FindLicenseKey(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	if !key.IsActive {
		return nil, fmt.Errorf("activate: %w", ErrLicenseKeyInactive)
	}
	if key.ClaimedByOther(user.ID) {
		log.Printf("[LicenseService] key=%s already bound, requested by user=%s", MaskLicenseKey(normalized), user.ID)
		return nil, fmt.Errorf("activate: %w", ErrLicenseKeyInUse)
	}

	now := s.now()
	expiresAt := key.ExpiryFrom(now)
	if !key.Plan.IsFree() && IsExpired(expiresAt, now) {
		return nil, fmt.Errorf("activate: key expired on %s: %w", expiresAt.Format(time.RFC3339), ErrLicenseKeyInactive)
	}

	// The key must be bound to this user before its license is written.
	if err := s.store.ClaimLicenseKey(ctx, normalized, user.ID, now); err != nil {
		return nil, fmt.Errorf("activate: claim key: %w", err)
	}

	var stored *models.License
	err = s.writeLicense(ctx, user.ID, func(current *models.License) *models.License {
		return &models.License{
			UserID:        user.ID,
			Plan:          key.Plan,
			MessageCount:  0,
			MessageLimit:  key.MessageLimit,
			ExpiresAt:     expiresAt,
			IsActive:      true,
			LastResetDate: now,
			LicenseKey:    normalized,
			UpdatedAt:     now,
		}
	}, &stored)
	if err != nil {
		return nil, fmt.Errorf("activate: write license: %w", err)
	}

	if err := s.store.SetUserRestrictions(ctx, user.ID, models.UserRestrictions{}); err != nil {
		return nil, fmt.Errorf("activate: clear restrictions: %w", err)
	}
	user.ApplyRestrictions(models.UserRestrictions{})

	log.Printf("[LicenseService] activated key=%s plan=%s user=%s expires=%s",
		MaskLicenseKey(normalized), stored.Plan, user.ID, stored.ExpiresAt.Format(time.RFC3339))

	return s.buildResponse(ctx, user, stored)
}

// IncrementMessageCount adds one message to the user's license counter.
func (s *LicenseService) IncrementMessageCount(ctx context.Context, email string) (*models.MessageCounter, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("increment: %w", err)
	}

	var stored *models.License
	err = s.writeLicense(ctx, user.ID, func(current *models.License) *models.License {
		if current == nil {
			return nil
		}
		next := *current
		next.MessageCount++
		next.UpdatedAt = s.now()
		return &next
	}, &stored)
	if err != nil {
		return nil, fmt.Errorf("increment: %w", err)
	}

	return &models.MessageCounter{
		MessageCount: stored.MessageCount,
		MessageLimit: stored.MessageLimit,
	}, nil
}

// AcknowledgeWarning marks one of the user's warnings as read.
func (s *LicenseService) AcknowledgeWarning(ctx context.Context, email, warningID string) error {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("acknowledge warning: %w", err)
	}
	if err := s.store.MarkWarningRead(ctx, user.ID, warningID); err != nil {
		return fmt.Errorf("acknowledge warning: %w", err)
	}
	return nil
}

// writeLicense applies mutate to the current license under optimistic
// concurrency. mutate receives nil when no license exists; returning nil
// aborts with ErrLicenseNotFound.
func (s *LicenseService) writeLicense(ctx context.Context, userID string, mutate func(current *models.License) *models.License, out **models.License) error {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		current, err := s.store.GetLicense(ctx, userID)
		if err != nil && !errors.Is(err, ErrLicenseNotFound) {
			return err
		}
		if errors.Is(err, ErrLicenseNotFound) {
			current = nil
		}

		next := mutate(current)
		if next == nil {
			return ErrLicenseNotFound
		}

		var expected int64
		if current != nil {
			expected = current.Version
		}

		stored, err := s.store.PutLicense(ctx, next, expected)
		if err == nil {
			*out = stored
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		log.Printf("[LicenseService] version conflict user=%s attempt=%d/%d", userID, attempt, maxWriteAttempts)
	}
	return ErrVersionConflict
}

func (s *LicenseService) buildResponse(ctx context.Context, user *models.User, lic *models.License) (*models.VerificationResponse, error) {
	warnings, err := s.store.ListUnreadWarnings(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load warnings: %w", err)
	}
	if warnings == nil {
		warnings = []models.Warning{}
	}

	maintenance, err := s.maintenance.GetMaintenance(ctx)
	if err != nil {
		return nil, fmt.Errorf("load maintenance: %w", err)
	}

	verdict := Evaluate(lic, user, s.now())
	verdict.Alerts = append(verdict.Alerts, WarningAlerts(warnings)...)

	return &models.VerificationResponse{
		Verdict:            verdict,
		MaintenanceMode:    maintenance.Enabled,
		MaintenanceMessage: maintenance.Message,
		Warnings:           warnings,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
