package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licensegate/backend/internal/models"
)

func newTestStore(t *testing.T) *FileLicenseStore {
	t.Helper()
	store, err := NewFileLicenseStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "u1", Email: "alice@example.com", MessageCount: 4}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "u2", Email: "bob@example.com"}))
	return store
}

func newTestFlow(t *testing.T, store LicenseStore) *LicenseService {
	t.Helper()
	svc := NewLicenseService(store, nil)
	svc.SetClock(func() time.Time { return evalNow })
	return svc
}

func seedKey(t *testing.T, store LicenseStore, key string, mutate func(k *models.LicenseKey)) {
	t.Helper()
	k := &models.LicenseKey{
		ID:           "key-" + key,
		Key:          key,
		Plan:         models.PlanPro,
		MessageLimit: 100,
		DurationDays: 30,
		IsActive:     true,
		CreatedAt:    evalNow.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(k)
	}
	require.NoError(t, store.CreateLicenseKey(context.Background(), k))
}

func TestLicenseService_VerifyUnknownUser(t *testing.T) {
	svc := newTestFlow(t, newTestStore(t))

	_, err := svc.Verify(context.Background(), "nobody@example.com", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLicenseService_VerifyWithoutLicense(t *testing.T) {
	svc := newTestFlow(t, newTestStore(t))

	resp, err := svc.Verify(context.Background(), "  alice@example.com ", "device-1")
	require.NoError(t, err)

	assert.False(t, resp.HasLicense)
	assert.Equal(t, models.PlanFree, resp.Plan)
	assert.Equal(t, 4, resp.MessageCount)
	assert.Equal(t, FreeTierMessageLimit, resp.MessageLimit)
	assert.True(t, resp.CanSendMessage)
	assert.False(t, resp.MaintenanceMode)
	assert.NotNil(t, resp.Warnings)
	assert.Empty(t, resp.Alerts)
}

func TestLicenseService_VerifyIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	seedKey(t, store, "ABCD1234", nil)
	_, err := svc.Activate(context.Background(), "alice@example.com", "ABCD-1234", "")
	require.NoError(t, err)

	first, err := svc.Verify(context.Background(), "alice@example.com", "")
	require.NoError(t, err)
	second, err := svc.Verify(context.Background(), "alice@example.com", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLicenseService_VerifyMergesMaintenanceAndWarnings(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()

	require.NoError(t, store.SetMaintenance(ctx, models.MaintenanceConfig{Enabled: true, Message: "Mise à jour en cours"}))
	require.NoError(t, store.CreateWarning(ctx, &models.Warning{ID: "w1", UserID: "u1", Message: "Dernier avertissement", CreatedAt: evalNow}))

	resp, err := svc.Verify(ctx, "alice@example.com", "")
	require.NoError(t, err)

	assert.True(t, resp.MaintenanceMode)
	assert.Equal(t, "Mise à jour en cours", resp.MaintenanceMessage)
	require.Len(t, resp.Warnings, 1)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, models.AlertAdminWarning, resp.Alerts[0].Code)
	assert.Equal(t, "w1", resp.Alerts[0].WarningID)
}

func TestLicenseService_ActivateNormalizesKey(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()
	seedKey(t, store, "ABCD1234", nil)

	resp, err := svc.Activate(ctx, "alice@example.com", "abcd-1234", "device-1")
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.True(t, resp.HasLicense)
	assert.Equal(t, models.PlanPro, resp.Plan)
	assert.Equal(t, 0, resp.MessageCount)
	assert.Equal(t, 100, resp.MessageLimit)
	assert.True(t, resp.ExpiresAt.Equal(evalNow.AddDate(0, 0, 30)))

	lic, err := store.GetLicense(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", lic.LicenseKey)
	assert.True(t, lic.LastResetDate.Equal(evalNow))
	assert.Equal(t, int64(1), lic.Version)

	key, err := store.FindLicenseKey(ctx, "ABCD1234")
	require.NoError(t, err)
	require.NotNil(t, key.UsedBy)
	assert.Equal(t, "u1", *key.UsedBy)
}

func TestLicenseService_ActivateUsesFixedKeyExpiry(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	fixed := evalNow.Add(90 * 24 * time.Hour)
	seedKey(t, store, "FIXED0001", func(k *models.LicenseKey) { k.ExpiresAt = fixed })

	resp, err := svc.Activate(context.Background(), "alice@example.com", "FIXED-0001", "")
	require.NoError(t, err)
	assert.True(t, resp.ExpiresAt.Equal(fixed))
}

func TestLicenseService_ActivateClearsRestrictions(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()
	seedKey(t, store, "ABCD1234", nil)
	require.NoError(t, store.SetUserRestrictions(ctx, "u1", models.UserRestrictions{IsBanned: true, BanReason: "spam", IsSuspended: true}))

	resp, err := svc.Activate(ctx, "alice@example.com", "ABCD1234", "")
	require.NoError(t, err)

	assert.False(t, resp.IsBanned)
	assert.False(t, resp.IsSuspended)
	assert.True(t, resp.CanSendMessage)

	user, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsBanned)
	assert.Empty(t, user.BanReason)
	assert.False(t, user.IsSuspended)
}

func TestLicenseService_ActivateKeyBoundToOtherUser(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()
	seedKey(t, store, "ABCD1234", nil)

	_, err := svc.Activate(ctx, "alice@example.com", "ABCD1234", "")
	require.NoError(t, err)

	_, err = svc.Activate(ctx, "bob@example.com", "ABCD-1234", "")
	assert.ErrorIs(t, err, ErrLicenseKeyInUse)

	_, err = store.GetLicense(ctx, "u2")
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestLicenseService_ActivateSameUserAgainResetsCounter(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()
	seedKey(t, store, "ABCD1234", nil)

	_, err := svc.Activate(ctx, "alice@example.com", "ABCD1234", "")
	require.NoError(t, err)
	_, err = svc.IncrementMessageCount(ctx, "alice@example.com")
	require.NoError(t, err)

	resp, err := svc.Activate(ctx, "alice@example.com", "ABCD1234", "")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.MessageCount)

	lic, err := store.GetLicense(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), lic.Version)
}

func TestLicenseService_ActivateRejectsBadKeys(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	seedKey(t, store, "INACTIVE1", func(k *models.LicenseKey) { k.IsActive = false })
	seedKey(t, store, "STALE0001", func(k *models.LicenseKey) { k.ExpiresAt = evalNow.Add(-time.Hour) })

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"unknown", "NOPE-NOPE", ErrLicenseKeyNotFound},
		{"blank", " - ", ErrLicenseKeyNotFound},
		{"inactive", "inactive1", ErrLicenseKeyInactive},
		{"already expired", "STALE-0001", ErrLicenseKeyInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Activate(context.Background(), "alice@example.com", tt.key, "")
			assert.ErrorIs(t, err, tt.want)

			_, err = store.GetLicense(context.Background(), "u1")
			assert.ErrorIs(t, err, ErrLicenseNotFound)
		})
	}
}

func TestLicenseService_IncrementMessageCount(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()

	_, err := svc.IncrementMessageCount(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	seedKey(t, store, "ABCD1234", nil)
	_, err = svc.Activate(ctx, "alice@example.com", "ABCD1234", "")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		counter, err := svc.IncrementMessageCount(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, counter.MessageCount)
		assert.Equal(t, 100, counter.MessageLimit)
	}
}

// conflictingStore fails the first n license writes with a version conflict.
type conflictingStore struct {
	*FileLicenseStore
	conflicts int
	puts      int
}

func (s *conflictingStore) PutLicense(ctx context.Context, lic *models.License, expectedVersion int64) (*models.License, error) {
	s.puts++
	if s.conflicts > 0 {
		s.conflicts--
		return nil, ErrVersionConflict
	}
	return s.FileLicenseStore.PutLicense(ctx, lic, expectedVersion)
}

func TestLicenseService_IncrementRetriesOnConflict(t *testing.T) {
	base := newTestStore(t)
	seedKey(t, base, "ABCD1234", nil)
	_, err := newTestFlow(t, base).Activate(context.Background(), "alice@example.com", "ABCD1234", "")
	require.NoError(t, err)

	t.Run("recovers within the retry budget", func(t *testing.T) {
		store := &conflictingStore{FileLicenseStore: base, conflicts: maxWriteAttempts - 1}
		counter, err := newTestFlow(t, store).IncrementMessageCount(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, 1, counter.MessageCount)
		assert.Equal(t, maxWriteAttempts, store.puts)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		store := &conflictingStore{FileLicenseStore: base, conflicts: maxWriteAttempts}
		_, err := newTestFlow(t, store).IncrementMessageCount(context.Background(), "alice@example.com")
		assert.ErrorIs(t, err, ErrVersionConflict)
		assert.Equal(t, maxWriteAttempts, store.puts)
	})
}

func TestLicenseService_StaleVersionIsRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	lic := &models.License{UserID: "u1", Plan: models.PlanPro, MessageLimit: 10}

	_, err := store.PutLicense(ctx, lic, 0)
	require.NoError(t, err)

	_, err = store.PutLicense(ctx, lic, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestLicenseService_AcknowledgeWarning(t *testing.T) {
	store := newTestStore(t)
	svc := newTestFlow(t, store)
	ctx := context.Background()
	require.NoError(t, store.CreateWarning(ctx, &models.Warning{ID: "w1", UserID: "u1", Message: "Attention", CreatedAt: evalNow}))

	assert.ErrorIs(t, svc.AcknowledgeWarning(ctx, "alice@example.com", "missing"), ErrWarningNotFound)
	assert.ErrorIs(t, svc.AcknowledgeWarning(ctx, "bob@example.com", "w1"), ErrWarningNotFound)
	require.NoError(t, svc.AcknowledgeWarning(ctx, "alice@example.com", "w1"))

	resp, err := svc.Verify(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.Empty(t, resp.Warnings)
	assert.Empty(t, resp.Alerts)
}
