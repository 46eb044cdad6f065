package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"petcare-vet-server/internal/models"
)

// GormAppointmentRepository stores appointments through gorm.
type GormAppointmentRepository struct {
	db *gorm.DB
}

// NewGormAppointmentRepository creates a new GormAppointmentRepository.
func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

var _ AppointmentRepository = (*GormAppointmentRepository)(nil)

func (r *GormAppointmentRepository) NextNumber(ctx context.Context) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sequence{}).
			Where("name = ?", models.AppointmentSequence).
			Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("sequence %q is not initialised, run migrations", models.AppointmentSequence)
		}
		return tx.Model(&models.Sequence{}).
			Where("name = ?", models.AppointmentSequence).
			Pluck("value", &value).Error
	})
	return value, err
}

func (r *GormAppointmentRepository) Create(ctx context.Context, a *models.Appointment, claims []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return syncClaims(tx, a.ID, claims)
	})
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.WithContext(ctx).Preload("Pets").First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) Find(ctx context.Context, f AppointmentFilter) ([]models.Appointment, int64, error) {
	q := r.filtered(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.Order {
	case OrderNewest:
		q = q.Order("booking_type asc").Order("created_at desc")
	default:
		q = q.Order("booking_type asc").Order("appointment_date asc").Order("time_slot asc")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var out []models.Appointment
	if err := q.Preload("Pets").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *GormAppointmentRepository) Count(ctx context.Context, f AppointmentFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, f).Count(&total).Error
	return total, err
}

func (r *GormAppointmentRepository) filtered(ctx context.Context, f AppointmentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("is_active = ?", true)
	if f.StoreID != "" {
		q = q.Where("store_id = ?", f.StoreID)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.PetID != "" {
		sub := r.db.Model(&models.AppointmentPet{}).Select("appointment_id").Where("pet_id = ?", f.PetID)
		q = q.Where("(pet_id = ? OR id IN (?))", f.PetID, sub)
	}
	if f.Date != "" {
		q = q.Where("appointment_date = ?", f.Date)
	}
	if f.TimeSlot != "" {
		q = q.Where("time_slot = ?", f.TimeSlot)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.ExcludeStatus != "" {
		q = q.Where("status <> ?", f.ExcludeStatus)
	}
	if f.BookingType != "" {
		q = q.Where("booking_type = ?", f.BookingType)
	}
	if f.ExcludeBookingType != "" {
		q = q.Where("booking_type <> ?", f.ExcludeBookingType)
	}
	return q
}

func (r *GormAppointmentRepository) Transition(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, claims []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, a, from, claims)
	})
}

func (r *GormAppointmentRepository) CompleteConsultation(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, claims []string, record *models.MedicalRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
			return err
		}
		return transition(tx, a, from, claims)
	})
}

// transition is a compare-and-set on status followed by pet entry and claim sync.
func transition(tx *gorm.DB, a *models.Appointment, from models.AppointmentStatus, claims []string) error {
	res := tx.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", a.ID, from).
		Select("*").
		Omit("id", "created_at", "created_by", "appointment_number", clause.Associations).
		Updates(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	for i := range a.Pets {
		a.Pets[i].AppointmentID = a.ID
		if err := tx.Save(&a.Pets[i]).Error; err != nil {
			return err
		}
	}
	return syncClaims(tx, a.ID, claims)
}

// syncClaims makes the claim rows of appointmentID equal to keys. A key held by
// another appointment aborts the surrounding transaction with a *ClaimError.
func syncClaims(tx *gorm.DB, appointmentID string, keys []string) error {
	release := tx.Where("appointment_id = ?", appointmentID)
	if len(keys) > 0 {
		release = release.Where("claim_key NOT IN ?", keys)
	}
	if err := release.Delete(&models.AppointmentClaim{}).Error; err != nil {
		return err
	}

	var held []string
	if err := tx.Model(&models.AppointmentClaim{}).
		Where("appointment_id = ?", appointmentID).
		Pluck("claim_key", &held).Error; err != nil {
		return err
	}
	owned := make(map[string]bool, len(held))
	for _, k := range held {
		owned[k] = true
	}

	for _, key := range keys {
		if owned[key] {
			continue
		}
		err := tx.Create(&models.AppointmentClaim{ClaimKey: key, AppointmentID: appointmentID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ClaimError{Key: key}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
