package services

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/licensegate/backend/internal/models"
)

const maintenanceDocID = "maintenance"

// MongoLicenseStore is the default LicenseStore. Licenses live in their own
// collection keyed by user id and carry a version for conditional writes.
type MongoLicenseStore struct {
	client      *mongo.Client
	db          *mongo.Database
	usersCol    *mongo.Collection
	licensesCol *mongo.Collection
	keysCol     *mongo.Collection
	warningsCol *mongo.Collection
	configCol   *mongo.Collection
}

type mongoUserDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	MessageCount int       `bson:"message_count"`
	IsBanned     bool      `bson:"is_banned"`
	BanReason    string    `bson:"ban_reason,omitempty"`
	IsSuspended  bool      `bson:"is_suspended"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type mongoLicenseDoc struct {
	UserID        string    `bson:"_id"`
	Plan          string    `bson:"plan"`
	MessageCount  int       `bson:"message_count"`
	MessageLimit  int       `bson:"message_limit"`
	ExpiresAt     time.Time `bson:"expires_at"`
	IsActive      bool      `bson:"is_active"`
	LastResetDate time.Time `bson:"last_reset_date"`
	LicenseKey    string    `bson:"license_key,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at"`
	Version       int64     `bson:"version"`
}

type mongoLicenseKeyDoc struct {
	ID           string     `bson:"_id"`
	Key          string     `bson:"key"`
	Plan         string     `bson:"plan"`
	MessageLimit int        `bson:"message_limit"`
	ExpiresAt    time.Time  `bson:"expires_at,omitempty"`
	DurationDays int        `bson:"duration_days,omitempty"`
	IsActive     bool       `bson:"is_active"`
	UsedBy       *string    `bson:"used_by"`
	UsedAt       *time.Time `bson:"used_at"`
	CreatedAt    time.Time  `bson:"created_at"`
}

type mongoWarningDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Message   string    `bson:"message"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoMaintenanceDoc struct {
	ID        string    `bson:"_id"`
	Enabled   bool      `bson:"enabled"`
	Message   string    `bson:"message,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewMongoLicenseStore(ctx context.Context, mongoURI, dbName string) (*MongoLicenseStore, error) {
	opts := options.Client().ApplyURI(mongoURI)
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		// Atlas negotiates reliably only when pinned to TLS 1.2.
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return NewMongoLicenseStoreWithClient(ctx, client, dbName), nil
}

// NewMongoLicenseStoreWithClient builds the store on an already connected client.
func NewMongoLicenseStoreWithClient(ctx context.Context, client *mongo.Client, dbName string) *MongoLicenseStore {
	db := client.Database(dbName)
	s := &MongoLicenseStore{
		client:      client,
		db:          db,
		usersCol:    db.Collection("users"),
		licensesCol: db.Collection("licenses"),
		keysCol:     db.Collection("licenseKeys"),
		warningsCol: db.Collection("warnings"),
		configCol:   db.Collection("config"),
	}

	// Best-effort indexes.
	_, _ = s.usersCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = s.keysCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = s.warningsCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: 1}},
	})

	log.Printf("MongoDB connected: db=%s", dbName)
	return s
}

func (s *MongoLicenseStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CreateUser seeds an account record.
func (s *MongoLicenseStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	doc := mongoUserDoc{
		ID:           u.ID,
		Email:        u.Email,
		MessageCount: u.MessageCount,
		IsBanned:     u.IsBanned,
		BanReason:    u.BanReason,
		IsSuspended:  u.IsSuspended,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.usersCol.InsertOne(ctx, doc)
	return err
}

func (s *MongoLicenseStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var d mongoUserDoc
	if err := s.usersCol.FindOne(ctx, bson.M{"email": email}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &models.User{
		ID:           d.ID,
		Email:        d.Email,
		MessageCount: d.MessageCount,
		IsBanned:     d.IsBanned,
		BanReason:    d.BanReason,
		IsSuspended:  d.IsSuspended,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func (s *MongoLicenseStore) SetUserRestrictions(ctx context.Context, userID string, r models.UserRestrictions) error {
	res, err := s.usersCol.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"is_banned":    r.IsBanned,
		"ban_reason":   r.BanReason,
		"is_suspended": r.IsSuspended,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoLicenseStore) GetLicense(ctx context.Context, userID string) (*models.License, error) {
	var d mongoLicenseDoc
	if err := s.licensesCol.FindOne(ctx, bson.M{"_id": userID}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	return licenseDocToModel(d), nil
}

func (s *MongoLicenseStore) PutLicense(ctx context.Context, lic *models.License, expectedVersion int64) (*models.License, error) {
	doc := licenseModelToDoc(lic)
	doc.Version = expectedVersion + 1

	if expectedVersion == 0 {
		if _, err := s.licensesCol.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrVersionConflict
			}
			return nil, err
		}
		return licenseDocToModel(doc), nil
	}

	res, err := s.licensesCol.ReplaceOne(ctx, bson.M{"_id": doc.UserID, "version": expectedVersion}, doc)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrVersionConflict
	}
	return licenseDocToModel(doc), nil
}

func (s *MongoLicenseStore) FindLicenseKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	var d mongoLicenseKeyDoc
	if err := s.keysCol.FindOne(ctx, bson.M{"key": key}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrLicenseKeyNotFound
		}
		return nil, err
	}
	return licenseKeyDocToModel(d), nil
}

func (s *MongoLicenseStore) CreateLicenseKey(ctx context.Context, key *models.LicenseKey) error {
	doc := mongoLicenseKeyDoc{
		ID:           key.ID,
		Key:          key.Key,
		Plan:         string(key.Plan),
		MessageLimit: key.MessageLimit,
		ExpiresAt:    key.ExpiresAt,
		DurationDays: key.DurationDays,
		IsActive:     key.IsActive,
		UsedBy:       key.UsedBy,
		UsedAt:       key.UsedAt,
		CreatedAt:    key.CreatedAt,
	}
	_, err := s.keysCol.InsertOne(ctx, doc)
	return err
}

func (s *MongoLicenseStore) ClaimLicenseKey(ctx context.Context, key, userID string, at time.Time) error {
	filter := bson.M{
		"key": key,
		"$or": bson.A{
			bson.M{"used_by": nil},
			bson.M{"used_by": ""},
			bson.M{"used_by": userID},
		},
	}
	var d mongoLicenseKeyDoc
	err := s.keysCol.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"used_by": userID, "used_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Distinguish "missing" from "held by someone else".
			var exists struct {
				ID string `bson:"_id"`
			}
			if err2 := s.keysCol.FindOne(ctx, bson.M{"key": key}).Decode(&exists); err2 == mongo.ErrNoDocuments {
				return ErrLicenseKeyNotFound
			}
			return ErrLicenseKeyInUse
		}
		return err
	}
	return nil
}

func (s *MongoLicenseStore) ListUnreadWarnings(ctx context.Context, userID string) ([]models.Warning, error) {
	cur, err := s.warningsCol.Find(ctx,
		bson.M{"user_id": userID, "read": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Warning, 0)
	for cur.Next(ctx) {
		var d mongoWarningDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, models.Warning{
			ID:        d.ID,
			UserID:    d.UserID,
			Message:   d.Message,
			Read:      d.Read,
			CreatedAt: d.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoLicenseStore) CreateWarning(ctx context.Context, w *models.Warning) error {
	_, err := s.warningsCol.InsertOne(ctx, mongoWarningDoc{
		ID:        w.ID,
		UserID:    w.UserID,
		Message:   w.Message,
		Read:      w.Read,
		CreatedAt: w.CreatedAt,
	})
	return err
}

func (s *MongoLicenseStore) MarkWarningRead(ctx context.Context, userID, warningID string) error {
	res, err := s.warningsCol.UpdateOne(ctx,
		bson.M{"_id": warningID, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrWarningNotFound
	}
	return nil
}

func (s *MongoLicenseStore) GetMaintenance(ctx context.Context) (models.MaintenanceConfig, error) {
	var d mongoMaintenanceDoc
	if err := s.configCol.FindOne(ctx, bson.M{"_id": maintenanceDocID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.MaintenanceConfig{}, nil
		}
		return models.MaintenanceConfig{}, err
	}
	return models.MaintenanceConfig{Enabled: d.Enabled, Message: d.Message, UpdatedAt: d.UpdatedAt}, nil
}

func (s *MongoLicenseStore) SetMaintenance(ctx context.Context, cfg models.MaintenanceConfig) error {
	doc := mongoMaintenanceDoc{
		ID:        maintenanceDocID,
		Enabled:   cfg.Enabled,
		Message:   cfg.Message,
		UpdatedAt: cfg.UpdatedAt,
	}
	_, err := s.configCol.ReplaceOne(ctx, bson.M{"_id": maintenanceDocID}, doc, options.Replace().SetUpsert(true))
	return err
}

func licenseDocToModel(d mongoLicenseDoc) *models.License {
	return &models.License{
		UserID:        d.UserID,
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

func licenseModelToDoc(l *models.License) mongoLicenseDoc {
	return mongoLicenseDoc{
		UserID:        l.UserID,
		Plan:          string(l.Plan),
		MessageCount:  l.MessageCount,
		MessageLimit:  l.MessageLimit,
		ExpiresAt:     l.ExpiresAt,
		IsActive:      l.IsActive,
		LastResetDate: l.LastResetDate,
		LicenseKey:    l.LicenseKey,
		UpdatedAt:     l.UpdatedAt,
		Version:       l.Version,
	}
}

func licenseKeyDocToModel(d mongoLicenseKeyDoc) *models.LicenseKey {
	return &models.LicenseKey{
		ID:           d.ID,
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
