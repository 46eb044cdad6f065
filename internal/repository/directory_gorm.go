package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"petcare-vet-server/internal/models"
)

// GormDirectory answers read-only lookups against platform-owned tables.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GormDirectory.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) GetPet(ctx context.Context, id string) (*models.Pet, error) {
	var pet models.Pet
	if err := first(d.db.WithContext(ctx), &pet, "id = ?", id); err != nil {
		return nil, err
	}
	return &pet, nil
}

func (d *GormDirectory) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := first(d.db.WithContext(ctx), &user, "id = ?", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *GormDirectory) GetService(ctx context.Context, id, storeID string) (*models.Service, error) {
	var svc models.Service
	if err := first(d.db.WithContext(ctx), &svc, "id = ? AND store_id = ? AND is_active = ?", id, storeID, true); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (d *GormDirectory) GetStoreByTenantID(ctx context.Context, storeID string) (*models.Store, error) {
	var store models.Store
	if err := first(d.db.WithContext(ctx), &store, "store_id = ?", storeID); err != nil {
		return nil, err
	}
	return &store, nil
}

func first(db *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	err := db.Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
