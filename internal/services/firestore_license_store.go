package services

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/licensegate/backend/internal/models"
)

// FirestoreLicenseStore keeps the document layout used by the mobile clients:
// users/{id}, users/{id}/license/current, users/{id}/warnings/{wid},
// licenseKeys/{kid} and config/maintenance.
type FirestoreLicenseStore struct {
	client *firestore.Client
}

type fsUser struct {
	Email        string    `firestore:"email"`
	MessageCount int       `firestore:"messageCount"`
	IsBanned     bool      `firestore:"isBanned"`
	BanReason    string    `firestore:"banReason"`
	IsSuspended  bool      `firestore:"isSuspended"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type fsLicense struct {
	Plan          string    `firestore:"plan"`
	MessageCount  int       `firestore:"messageCount"`
	MessageLimit  int       `firestore:"messageLimit"`
	ExpiresAt     time.Time `firestore:"expiresAt"`
	IsActive      bool      `firestore:"isActive"`
	LastResetDate time.Time `firestore:"lastResetDate"`
	LicenseKey    string    `firestore:"licenseKey"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
	Version       int64     `firestore:"version"`
}

type fsLicenseKey struct {
	Key          string     `firestore:"key"`
	Plan         string     `firestore:"plan"`
	MessageLimit int        `firestore:"messageLimit"`
	ExpiresAt    time.Time  `firestore:"expiresAt"`
	DurationDays int        `firestore:"durationDays"`
	IsActive     bool       `firestore:"isActive"`
	UsedBy       *string    `firestore:"usedBy"`
	UsedAt       *time.Time `firestore:"usedAt"`
	CreatedAt    time.Time  `firestore:"createdAt"`
}

type fsWarning struct {
	Message   string    `firestore:"message"`
	Read      bool      `firestore:"read"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type fsMaintenance struct {
	Enabled   bool      `firestore:"enabled"`
	Message   string    `firestore:"message"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func NewFirestoreLicenseStore(client *firestore.Client) *FirestoreLicenseStore {
	return &FirestoreLicenseStore{client: client}
}

func (s *FirestoreLicenseStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreLicenseStore) userRef(userID string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(userID)
}

func (s *FirestoreLicenseStore) licenseRef(userID string) *firestore.DocumentRef {
	return s.userRef(userID).Collection("license").Doc("current")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreLicenseStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := s.client.Collection("users").Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var d fsUser
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return &models.User{
		ID:           snap.Ref.ID,
		Email:        d.Email,
		MessageCount: d.MessageCount,
		IsBanned:     d.IsBanned,
		BanReason:    d.BanReason,
		IsSuspended:  d.IsSuspended,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func (s *FirestoreLicenseStore) SetUserRestrictions(ctx context.Context, userID string, r models.UserRestrictions) error {
	_, err := s.userRef(userID).Update(ctx, []firestore.Update{
		{Path: "isBanned", Value: r.IsBanned},
		{Path: "banReason", Value: r.BanReason},
		{Path: "isSuspended", Value: r.IsSuspended},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if isNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

func (s *FirestoreLicenseStore) GetLicense(ctx context.Context, userID string) (*models.License, error) {
	snap, err := s.licenseRef(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	var d fsLicense
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return fsLicenseToModel(userID, d), nil
}

// PutLicense runs the version check and the write in one transaction.
func (s *FirestoreLicenseStore) PutLicense(ctx context.Context, lic *models.License, expectedVersion int64) (*models.License, error) {
	ref := s.licenseRef(lic.UserID)
	doc := fsLicense{
		Plan:          string(lic.Plan),
		MessageCount:  lic.MessageCount,
		MessageLimit:  lic.MessageLimit,
		ExpiresAt:     lic.ExpiresAt,
		IsActive:      lic.IsActive,
		LastResetDate: lic.LastResetDate,
		LicenseKey:    lic.LicenseKey,
		UpdatedAt:     lic.UpdatedAt,
		Version:       expectedVersion + 1,
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		var current int64
		switch {
		case err == nil:
			var d fsLicense
			if err := snap.DataTo(&d); err != nil {
				return err
			}
			current = d.Version
		case isNotFound(err):
			current = 0
		default:
			return err
		}
		if current != expectedVersion {
			return ErrVersionConflict
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return nil, err
	}
	return fsLicenseToModel(lic.UserID, doc), nil
}

func (s *FirestoreLicenseStore) keyQuery(key string) firestore.Query {
	return s.client.Collection("licenseKeys").Where("key", "==", key).Limit(1)
}

func (s *FirestoreLicenseStore) FindLicenseKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	iter := s.keyQuery(key).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrLicenseKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	var d fsLicenseKey
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return fsLicenseKeyToModel(snap.Ref.ID, d), nil
}

func (s *FirestoreLicenseStore) CreateLicenseKey(ctx context.Context, key *models.LicenseKey) error {
	_, err := s.client.Collection("licenseKeys").Doc(key.ID).Create(ctx, fsLicenseKey{
		Key:          key.Key,
		Plan:         string(key.Plan),
		MessageLimit: key.MessageLimit,
		ExpiresAt:    key.ExpiresAt,
		DurationDays: key.DurationDays,
		IsActive:     key.IsActive,
		UsedBy:       key.UsedBy,
		UsedAt:       key.UsedAt,
		CreatedAt:    key.CreatedAt,
	})
	return err
}

func (s *FirestoreLicenseStore) ClaimLicenseKey(ctx context.Context, key, userID string, at time.Time) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(s.keyQuery(key))
		defer iter.Stop()

		snap, err := iter.Next()
		if err == iterator.Done {
			return ErrLicenseKeyNotFound
		}
		if err != nil {
			return err
		}
		var d fsLicenseKey
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		if fsLicenseKeyToModel(snap.Ref.ID, d).ClaimedByOther(userID) {
			return ErrLicenseKeyInUse
		}
		return tx.Update(snap.Ref, []firestore.Update{
			{Path: "usedBy", Value: userID},
			{Path: "usedAt", Value: at},
		})
	})
}

func (s *FirestoreLicenseStore) ListUnreadWarnings(ctx context.Context, userID string) ([]models.Warning, error) {
	iter := s.userRef(userID).Collection("warnings").Where("read", "==", false).Documents(ctx)
	defer iter.Stop()

	out := make([]models.Warning, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var d fsWarning
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		out = append(out, models.Warning{
			ID:        snap.Ref.ID,
			UserID:    userID,
			Message:   d.Message,
			Read:      d.Read,
			CreatedAt: d.CreatedAt,
		})
	}
	// No composite index on (read, createdAt); order client-side.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FirestoreLicenseStore) CreateWarning(ctx context.Context, w *models.Warning) error {
	_, err := s.userRef(w.UserID).Collection("warnings").Doc(w.ID).Create(ctx, fsWarning{
		Message:   w.Message,
		Read:      w.Read,
		CreatedAt: w.CreatedAt,
	})
	return err
}

func (s *FirestoreLicenseStore) MarkWarningRead(ctx context.Context, userID, warningID string) error {
	_, err := s.userRef(userID).Collection("warnings").Doc(warningID).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if isNotFound(err) {
		return ErrWarningNotFound
	}
	return err
}

func (s *FirestoreLicenseStore) GetMaintenance(ctx context.Context) (models.MaintenanceConfig, error) {
	snap, err := s.client.Collection("config").Doc(maintenanceDocID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return models.MaintenanceConfig{}, nil
		}
		return models.MaintenanceConfig{}, err
	}
	var d fsMaintenance
	if err := snap.DataTo(&d); err != nil {
		return models.MaintenanceConfig{}, err
	}
	return models.MaintenanceConfig{Enabled: d.Enabled, Message: d.Message, UpdatedAt: d.UpdatedAt}, nil
}

func (s *FirestoreLicenseStore) SetMaintenance(ctx context.Context, cfg models.MaintenanceConfig) error {
	_, err := s.client.Collection("config").Doc(maintenanceDocID).Set(ctx, fsMaintenance{
		Enabled:   cfg.Enabled,
		Message:   cfg.Message,
		UpdatedAt: cfg.UpdatedAt,
	})
	return err
}

func fsLicenseToModel(userID string, d fsLicense) *models.License {
	return &models.License{
		UserID:        userID,
		Plan:          models.Plan(d.Plan),
		MessageCount:  d.MessageCount,
		MessageLimit:  d.MessageLimit,
		ExpiresAt:     d.ExpiresAt,
		IsActive:      d.IsActive,
		LastResetDate: d.LastResetDate,
		LicenseKey:    d.LicenseKey,
		UpdatedAt:     d.UpdatedAt,
		Version:       d.Version,
	}
}

func fsLicenseKeyToModel(id string, d fsLicenseKey) *models.LicenseKey {
	return &models.LicenseKey{
		ID:           id,
		Key:          d.Key,
		Plan:         models.Plan(d.Plan),
		MessageLimit: d.MessageLimit,
		ExpiresAt:    d.ExpiresAt,
		DurationDays: d.DurationDays,
		IsActive:     d.IsActive,
		UsedBy:       d.UsedBy,
		UsedAt:       d.UsedAt,
		CreatedAt:    d.CreatedAt,
	}
}
