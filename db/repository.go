package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository persists the credential pair.
type TokenRepository interface {
	Get(ctx context.Context) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
	Clear(ctx context.Context) error
}

// SettingsRepository persists key/value preferences.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// AnimalRepository is the local cache of the user's animals.
type AnimalRepository interface {
	ReplaceAll(ctx context.Context, records []AnimalRecord) error
	GetByID(ctx context.Context, id string) (*AnimalRecord, error)
	List(ctx context.Context) ([]AnimalRecord, error)
	SearchByName(ctx context.Context, nameSubstr string) ([]AnimalRecord, error)
	Upsert(ctx context.Context, record *AnimalRecord) error
	Delete(ctx context.Context, ids ...string) error
	Clear(ctx context.Context) error
}

type gormTokenRepo struct{ db *gorm.DB }

type gormSettingsRepo struct{ db *gorm.DB }

type gormAnimalRepo struct{ db *gorm.DB }

// NewTokenRepository creates a TokenRepository backed by db.
func NewTokenRepository(db *gorm.DB) TokenRepository { return &gormTokenRepo{db: db} }

// NewSettingsRepository creates a SettingsRepository backed by db.
func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &gormSettingsRepo{db: db} }

// NewAnimalRepository creates an AnimalRepository backed by db.
func NewAnimalRepository(db *gorm.DB) AnimalRepository { return &gormAnimalRepo{db: db} }

var errNotInitialized = errors.New("repository not initialized")

// Get returns the stored token pair, or nil when none is stored.
func (r *gormTokenRepo) Get(ctx context.Context) (*Token, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var token Token
	err := r.db.WithContext(ctx).First(&token, "id = ?", tokenRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve token data")
		return nil, err
	}
	return &token, nil
}

func (r *gormTokenRepo) Upsert(ctx context.Context, token *Token) error {
	if r.db == nil {
		return errNotInitialized
	}
	token.ID = tokenRowID
	token.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "updated_at"}),
	}).Create(token).Error
}

func (r *gormTokenRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Token{}).Error
}

func (r *gormSettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if r.db == nil {
		return "", false, errNotInitialized
	}
	var s Setting
	err := r.db.WithContext(ctx).Where(&Setting{Key: key}).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return s.Value, true, nil
}

func (r *gormSettingsRepo) Set(ctx context.Context, key, value string) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

// ReplaceAll swaps the cache contents for records in one transaction.
func (r *gormAnimalRepo) ReplaceAll(ctx context.Context, records []AnimalRecord) error {
	if r.db == nil {
		return errNotInitialized
	}
	now := time.Now()
	for i := range records {
		records[i].SyncedAt = now
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&AnimalRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
}

func (r *gormAnimalRepo) GetByID(ctx context.Context, id string) (*AnimalRecord, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var rec AnimalRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormAnimalRepo) List(ctx context.Context) ([]AnimalRecord, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var records []AnimalRecord
	if err := r.db.WithContext(ctx).Order("name").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// SearchByName matches a case-insensitive substring of the name.
func (r *gormAnimalRepo) SearchByName(ctx context.Context, nameSubstr string) ([]AnimalRecord, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var records []AnimalRecord
	pattern := "%" + strings.ToLower(nameSubstr) + "%"
	if err := r.db.WithContext(ctx).Where("LOWER(name) LIKE ?", pattern).Order("name").Find(&records).Error; err != nil {
		log.Error().Err(err).Str("query", nameSubstr).Msg("Failed to search animals by name")
		return nil, err
	}
	return records, nil
}

// Upsert stores or refreshes a single cached animal.
func (r *gormAnimalRepo) Upsert(ctx context.Context, record *AnimalRecord) error {
	if r.db == nil {
		return errNotInitialized
	}
	record.SyncedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "species", "data", "synced_at"}),
	}).Create(record).Error
}

func (r *gormAnimalRepo) Delete(ctx context.Context, ids ...string) error {
	if r.db == nil {
		return errNotInitialized
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&AnimalRecord{}).Error
}

func (r *gormAnimalRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&AnimalRecord{}).Error
}
