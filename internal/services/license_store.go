package services

import (
	"context"
	"time"

	"github.com/licensegate/backend/internal/models"
)

// LicenseStore is the document-store surface of the license flows. Lookups
// that find nothing return the package's not-found sentinels.
type LicenseStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserRestrictions(ctx context.Context, userID string, r models.UserRestrictions) error

	GetLicense(ctx context.Context, userID string) (*models.License, error)
	// PutLicense writes lic when the stored version equals expectedVersion.
	// expectedVersion zero means create-if-absent. On success the stored copy,
	// with its new version, is returned; otherwise ErrVersionConflict.
	PutLicense(ctx context.Context, lic *models.License, expectedVersion int64) (*models.License, error)

	FindLicenseKey(ctx context.Context, key string) (*models.LicenseKey, error)
	CreateLicenseKey(ctx context.Context, key *models.LicenseKey) error
	// ClaimLicenseKey binds key to userID unless another user holds it
	// (ErrLicenseKeyInUse).
	ClaimLicenseKey(ctx context.Context, key, userID string, at time.Time) error

	ListUnreadWarnings(ctx context.Context, userID string) ([]models.Warning, error)
	CreateWarning(ctx context.Context, w *models.Warning) error
	MarkWarningRead(ctx context.Context, userID, warningID string) error

	GetMaintenance(ctx context.Context) (models.MaintenanceConfig, error)
	SetMaintenance(ctx context.Context, cfg models.MaintenanceConfig) error
}

// MaintenanceReader reads the process-wide maintenance toggle.
type MaintenanceReader interface {
	GetMaintenance(ctx context.Context) (models.MaintenanceConfig, error)
}

// MaintenanceWriter updates the process-wide maintenance toggle.
type MaintenanceWriter interface {
	SetMaintenance(ctx context.Context, cfg models.MaintenanceConfig) error
}

var (
	_ LicenseStore = (*MongoLicenseStore)(nil)
	_ LicenseStore = (*FirestoreLicenseStore)(nil)
	_ LicenseStore = (*FileLicenseStore)(nil)
)
