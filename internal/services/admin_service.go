package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/models"
)

// AdminService holds the operator actions behind the admin routes.
type AdminService struct {
	store       LicenseStore
	maintenance MaintenanceWriter
	now         func() time.Time
}

// NewAdminService builds the operator actions. maintenance may be nil to write
// the toggle straight to the store; pass the cache to keep it coherent.
func NewAdminService(store LicenseStore, maintenance MaintenanceWriter) *AdminService {
	if maintenance == nil {
		maintenance = store
	}
	return &AdminService{
		store:       store,
		maintenance: maintenance,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) SetClock(now func() time.Time) {
	s.now = now
}

// BanUser bans the account and records the reason shown in its alert.
func (s *AdminService) BanUser(ctx context.Context, email, reason string) (*models.User, error) {
	return s.updateRestrictions(ctx, email, "ban", func(r *models.UserRestrictions) {
		r.IsBanned = true
		r.BanReason = strings.TrimSpace(reason)
	})
}

func (s *AdminService) UnbanUser(ctx context.Context, email string) (*models.User, error) {
	return s.updateRestrictions(ctx, email, "unban", func(r *models.UserRestrictions) {
		r.IsBanned = false
		r.BanReason = ""
	})
}

func (s *AdminService) SuspendUser(ctx context.Context, email string) (*models.User, error) {
	return s.updateRestrictions(ctx, email, "suspend", func(r *models.UserRestrictions) {
		r.IsSuspended = true
	})
}

func (s *AdminService) UnsuspendUser(ctx context.Context, email string) (*models.User, error) {
	return s.updateRestrictions(ctx, email, "unsuspend", func(r *models.UserRestrictions) {
		r.IsSuspended = false
	})
}

func (s *AdminService) updateRestrictions(ctx context.Context, email, action string, apply func(*models.UserRestrictions)) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	r := user.Restrictions()
	apply(&r)
	if err := s.store.SetUserRestrictions(ctx, user.ID, r); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	user.ApplyRestrictions(r)

	log.Printf("[AdminService] %s user=%s banned=%t suspended=%t", action, user.ID, r.IsBanned, r.IsSuspended)
	return user, nil
}

// CreateWarning addresses an unread warning to the account owning email.
func (s *AdminService) CreateWarning(ctx context.Context, email, message string) (*models.Warning, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("create warning: %w", err)
	}

	w := &models.Warning{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Message:   strings.TrimSpace(message),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateWarning(ctx, w); err != nil {
		return nil, fmt.Errorf("create warning: %w", err)
	}
	log.Printf("[AdminService] warning=%s user=%s", w.ID, user.ID)
	return w, nil
}

// CreateLicenseKey mints a fresh active key from req.
func (s *AdminService) CreateLicenseKey(ctx context.Context, req *models.CreateLicenseKeyRequest) (*models.LicenseKey, error) {
	now := s.now()
	key := &models.LicenseKey{
		ID:           uuid.NewString(),
		Key:          GenerateLicenseKey(),
		Plan:         req.Plan,
		MessageLimit: req.MessageLimit,
		DurationDays: req.DurationDays,
		IsActive:     true,
		CreatedAt:    now,
	}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("create license key: expiresAt: %w", err)
		}
		key.ExpiresAt = t.UTC()
	}

	if err := s.store.CreateLicenseKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create license key: %w", err)
	}
	log.Printf("[AdminService] minted key=%s plan=%s limit=%d", MaskLicenseKey(key.Key), key.Plan, key.MessageLimit)
	return key, nil
}

// SetMaintenance flips the process-wide maintenance toggle.
func (s *AdminService) SetMaintenance(ctx context.Context, enabled bool, message string) (models.MaintenanceConfig, error) {
	cfg := models.MaintenanceConfig{
		Enabled:   enabled,
		Message:   strings.TrimSpace(message),
		UpdatedAt: s.now(),
	}
	if err := s.maintenance.SetMaintenance(ctx, cfg); err != nil {
		return models.MaintenanceConfig{}, fmt.Errorf("set maintenance: %w", err)
	}
	log.Printf("[AdminService] maintenance enabled=%t", enabled)
	return cfg, nil
}
