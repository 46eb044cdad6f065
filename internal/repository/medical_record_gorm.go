package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"petcare-vet-server/internal/models"
)

// GormMedicalRecordRepository stores medical records through gorm.
type GormMedicalRecordRepository struct {
	db *gorm.DB
}

// NewGormMedicalRecordRepository creates a new GormMedicalRecordRepository.
func NewGormMedicalRecordRepository(db *gorm.DB) *GormMedicalRecordRepository {
	return &GormMedicalRecordRepository{db: db}
}

var _ MedicalRecordRepository = (*GormMedicalRecordRepository)(nil)

// attachment metadata only, file bodies are fetched one at a time
func withoutFileData(db *gorm.DB) *gorm.DB {
	return db.Omit("file_data")
}

func (r *GormMedicalRecordRepository) GetByID(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var rec models.MedicalRecord
	err := r.db.WithContext(ctx).
		Preload("Attachments", withoutFileData).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormMedicalRecordRepository) Find(ctx context.Context, f RecordFilter) ([]models.MedicalRecord, error) {
	q := r.db.WithContext(ctx).Model(&models.MedicalRecord{})
	if !f.IncludeArchived {
		q = q.Where("is_active = ?", true)
	}
	if len(f.PetIDs) > 0 {
		q = q.Where("pet_id IN ?", f.PetIDs)
	}
	if f.StoreID != "" {
		q = q.Where("store_id = ?", f.StoreID)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	q = q.Order("visit_date desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.MedicalRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormMedicalRecordRepository) Update(ctx context.Context, rec *models.MedicalRecord) error {
	res := r.db.WithContext(ctx).Model(&models.MedicalRecord{}).
		Where("id = ?", rec.ID).
		Select("*").
		Omit("id", "created_at", "created_by", "pet_id", "owner_id", "store_id", "appointment_id", clause.Associations).
		Updates(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormMedicalRecordRepository) AddAttachment(ctx context.Context, att *models.MedicalRecordAttachment) error {
	return r.db.WithContext(ctx).Create(att).Error
}

func (r *GormMedicalRecordRepository) GetAttachment(ctx context.Context, id string) (*models.MedicalRecordAttachment, error) {
	var att models.MedicalRecordAttachment
	err := r.db.WithContext(ctx).First(&att, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}
