package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licensegate/backend/internal/models"
)

func newTestAdmin(t *testing.T, store LicenseStore) *AdminService {
	t.Helper()
	svc := NewAdminService(store, nil)
	svc.SetClock(func() time.Time { return evalNow })
	return svc
}

func TestAdminService_BanAndUnban(t *testing.T) {
	store := newTestStore(t)
	admin := newTestAdmin(t, store)
	flow := newTestFlow(t, store)
	ctx := context.Background()

	user, err := admin.BanUser(ctx, "alice@example.com", "  spam répété ")
	require.NoError(t, err)
	assert.True(t, user.IsBanned)
	assert.Equal(t, "spam répété", user.BanReason)

	resp, err := flow.Verify(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.True(t, resp.IsBanned)
	assert.False(t, resp.CanSendMessage)
	assert.Contains(t, alertCodes(resp.Alerts), models.AlertAccountBanned)

	user, err = admin.UnbanUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsBanned)
	assert.Empty(t, user.BanReason)

	stored, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsBanned)
	assert.Empty(t, stored.BanReason)
}

func TestAdminService_SuspendKeepsBan(t *testing.T) {
	store := newTestStore(t)
	admin := newTestAdmin(t, store)
	ctx := context.Background()

	_, err := admin.BanUser(ctx, "bob@example.com", "fraude")
	require.NoError(t, err)
	user, err := admin.SuspendUser(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsSuspended)
	assert.True(t, user.IsBanned)
	assert.Equal(t, "fraude", user.BanReason)

	user, err = admin.UnsuspendUser(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsSuspended)
	assert.True(t, user.IsBanned)
}

func TestAdminService_UnknownUser(t *testing.T) {
	admin := newTestAdmin(t, newTestStore(t))
	ctx := context.Background()

	_, err := admin.BanUser(ctx, "ghost@example.com", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = admin.SuspendUser(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = admin.CreateWarning(ctx, "ghost@example.com", "hello")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminService_CreateWarning(t *testing.T) {
	store := newTestStore(t)
	admin := newTestAdmin(t, store)
	ctx := context.Background()

	w, err := admin.CreateWarning(ctx, "alice@example.com", " Respectez les conditions ")
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "u1", w.UserID)
	assert.Equal(t, "Respectez les conditions", w.Message)
	assert.False(t, w.Read)
	assert.True(t, w.CreatedAt.Equal(evalNow))

	unread, err := store.ListUnreadWarnings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, w.ID, unread[0].ID)
}

func TestAdminService_CreateLicenseKeyIsRedeemable(t *testing.T) {
	store := newTestStore(t)
	admin := newTestAdmin(t, store)
	flow := newTestFlow(t, store)
	ctx := context.Background()

	key, err := admin.CreateLicenseKey(ctx, &models.CreateLicenseKeyRequest{
		Plan:         models.PlanPremium,
		MessageLimit: 500,
		DurationDays: 14,
	})
	require.NoError(t, err)
	assert.True(t, key.IsActive)
	assert.Nil(t, key.UsedBy)
	assert.Len(t, key.Key, licenseKeyLength)

	resp, err := flow.Activate(ctx, "bob@example.com", FormatLicenseKey(key.Key), "")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, resp.Plan)
	assert.Equal(t, 500, resp.MessageLimit)
	assert.True(t, resp.ExpiresAt.Equal(evalNow.AddDate(0, 0, 14)))
}

func TestAdminService_CreateLicenseKeyFixedExpiry(t *testing.T) {
	admin := newTestAdmin(t, newTestStore(t))

	key, err := admin.CreateLicenseKey(context.Background(), &models.CreateLicenseKeyRequest{
		Plan:      models.PlanBasic,
		ExpiresAt: "2025-12-31T23:59:59+01:00",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 22, 59, 59, 0, time.UTC), key.ExpiresAt)

	_, err = admin.CreateLicenseKey(context.Background(), &models.CreateLicenseKeyRequest{
		Plan:      models.PlanBasic,
		ExpiresAt: "31/12/2025",
	})
	assert.Error(t, err)
}

func TestAdminService_SetMaintenance(t *testing.T) {
	store := newTestStore(t)
	admin := newTestAdmin(t, store)
	flow := newTestFlow(t, store)
	ctx := context.Background()

	cfg, err := admin.SetMaintenance(ctx, true, " Retour à 18h ")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "Retour à 18h", cfg.Message)

	resp, err := flow.Verify(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.True(t, resp.MaintenanceMode)
	assert.Equal(t, "Retour à 18h", resp.MaintenanceMessage)

	_, err = admin.SetMaintenance(ctx, false, "")
	require.NoError(t, err)
	resp, err = flow.Verify(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.False(t, resp.MaintenanceMode)
}
