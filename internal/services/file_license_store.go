package services

import (
	"context"
	"sort"
	"time"

	"github.com/licensegate/backend/internal/models"
	"github.com/licensegate/backend/internal/storage"
)

// FileLicenseStore keeps every collection in one JSON document. It backs local
// development and tests; all writes are serialized by the underlying store.
type FileLicenseStore struct {
	store *storage.JSONStore
}

type fileLicense struct {
	License models.License `json:"license"`
	Version int64          `json:"version"`
}

type fileDB struct {
	Users       map[string]*models.User       `json:"users"`
	Licenses    map[string]*fileLicense       `json:"licenses"`
	LicenseKeys map[string]*models.LicenseKey `json:"licenseKeys"`
	Warnings    map[string][]models.Warning   `json:"warnings"`
	Maintenance models.MaintenanceConfig      `json:"maintenance"`
}

func (db *fileDB) ensure() {
	if db.Users == nil {
		db.Users = make(map[string]*models.User)
	}
	if db.Licenses == nil {
		db.Licenses = make(map[string]*fileLicense)
	}
	if db.LicenseKeys == nil {
		db.LicenseKeys = make(map[string]*models.LicenseKey)
	}
	if db.Warnings == nil {
		db.Warnings = make(map[string][]models.Warning)
	}
}

func NewFileLicenseStore(dataDir string) (*FileLicenseStore, error) {
	js, err := storage.NewJSONStore(dataDir, "licenses.json")
	if err != nil {
		return nil, err
	}
	return &FileLicenseStore{store: js}, nil
}

func (s *FileLicenseStore) read() (*fileDB, error) {
	var db fileDB
	if err := s.store.Load(&db); err != nil {
		return nil, err
	}
	db.ensure()
	return &db, nil
}

func (s *FileLicenseStore) update(fn func(db *fileDB) error) error {
	var db fileDB
	return s.store.Update(&db, func() error {
		db.ensure()
		return fn(&db)
	})
}

// CreateUser seeds an account. Registration lives outside this service, so
// this is only used by local tooling and tests.
func (s *FileLicenseStore) CreateUser(ctx context.Context, u *models.User) error {
	return s.update(func(db *fileDB) error {
		cp := *u
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now().UTC()
		}
		cp.UpdatedAt = cp.CreatedAt
		db.Users[cp.ID] = &cp
		return nil
	})
}

func (s *FileLicenseStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, u := range db.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *FileLicenseStore) SetUserRestrictions(ctx context.Context, userID string, r models.UserRestrictions) error {
	return s.update(func(db *fileDB) error {
		u, ok := db.Users[userID]
		if !ok {
			return ErrUserNotFound
		}
		u.ApplyRestrictions(r)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *FileLicenseStore) GetLicense(ctx context.Context, userID string) (*models.License, error) {
	db, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := db.Licenses[userID]
	if !ok {
		return nil, ErrLicenseNotFound
	}
	lic := rec.License
	lic.Version = rec.Version
	return &lic, nil
}

func (s *FileLicenseStore) PutLicense(ctx context.Context, lic *models.License, expectedVersion int64) (*models.License, error) {
	var out models.License
	err := s.update(func(db *fileDB) error {
		var current int64
		if rec, ok := db.Licenses[lic.UserID]; ok {
			current = rec.Version
		}
		if current != expectedVersion {
			return ErrVersionConflict
		}
		out = *lic
		out.Version = expectedVersion + 1
		db.Licenses[lic.UserID] = &fileLicense{License: out, Version: out.Version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FileLicenseStore) FindLicenseKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	db, err := s.read()
	if err != nil {
		return nil, err
	}
	k, ok := db.LicenseKeys[key]
	if !ok {
		return nil, ErrLicenseKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *FileLicenseStore) CreateLicenseKey(ctx context.Context, key *models.LicenseKey) error {
	return s.update(func(db *fileDB) error {
		cp := *key
		db.LicenseKeys[cp.Key] = &cp
		return nil
	})
}

func (s *FileLicenseStore) ClaimLicenseKey(ctx context.Context, key, userID string, at time.Time) error {
	return s.update(func(db *fileDB) error {
		k, ok := db.LicenseKeys[key]
		if !ok {
			return ErrLicenseKeyNotFound
		}
		if k.ClaimedByOther(userID) {
			return ErrLicenseKeyInUse
		}
		uid := userID
		claimedAt := at
		k.UsedBy = &uid
		k.UsedAt = &claimedAt
		return nil
	})
}

func (s *FileLicenseStore) ListUnreadWarnings(ctx context.Context, userID string) ([]models.Warning, error) {
	db, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]models.Warning, 0)
	for _, w := range db.Warnings[userID] {
		if !w.Read {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FileLicenseStore) CreateWarning(ctx context.Context, w *models.Warning) error {
	return s.update(func(db *fileDB) error {
		db.Warnings[w.UserID] = append(db.Warnings[w.UserID], *w)
		return nil
	})
}

func (s *FileLicenseStore) MarkWarningRead(ctx context.Context, userID, warningID string) error {
	return s.update(func(db *fileDB) error {
		list := db.Warnings[userID]
		for i := range list {
			if list[i].ID == warningID {
				list[i].Read = true
				return nil
			}
		}
		return ErrWarningNotFound
	})
}

func (s *FileLicenseStore) GetMaintenance(ctx context.Context) (models.MaintenanceConfig, error) {
	db, err := s.read()
	if err != nil {
		return models.MaintenanceConfig{}, err
	}
	return db.Maintenance, nil
}

func (s *FileLicenseStore) SetMaintenance(ctx context.Context, cfg models.MaintenanceConfig) error {
	return s.update(func(db *fileDB) error {
		db.Maintenance = cfg
		return nil
	})
}
