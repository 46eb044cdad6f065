package repository

import (
	"context"
	"errors"
	"fmt"

	"petcare-vet-server/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrStaleState = errors.New("appointment changed concurrently")
	ErrClaimTaken = errors.New("claim already held")
)

// ClaimError names the contended key that could not be reserved.
type ClaimError struct {
	Key string
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("claim %q already held", e.Key)
}

func (e *ClaimError) Unwrap() error { return ErrClaimTaken }

// Appointment list orderings.
const (
	OrderSchedule = "schedule" // booking type, date, slot
	OrderNewest   = "newest"   // booking type, newest first
)

// AppointmentFilter narrows appointment queries. Zero fields do not filter.
type AppointmentFilter struct {
	StoreID            string
	OwnerID            string
	PetID              string // matches the primary pet and multi-pet sub-entries
	Date               string
	TimeSlot           string
	Statuses           []models.AppointmentStatus
	ExcludeStatus      models.AppointmentStatus
	BookingType        models.BookingType
	ExcludeBookingType models.BookingType
	Order              string
	Limit              int
	Offset             int
}

// AppointmentRepository is the durable store of appointments.
type AppointmentRepository interface {
	// NextNumber returns the next value of the appointment number sequence.
	NextNumber(ctx context.Context) (int64, error)
	// Create inserts the appointment, its pet entries and the given claims atomically.
	Create(ctx context.Context, a *models.Appointment, claims []string) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Find(ctx context.Context, f AppointmentFilter) ([]models.Appointment, int64, error)
	Count(ctx context.Context, f AppointmentFilter) (int64, error)
	// Transition writes a only if its stored status still equals from, and
	// replaces its claims with the given set. ErrStaleState when the status moved.
	Transition(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, claims []string) error
	// CompleteConsultation inserts record and applies Transition in one transaction.
	CompleteConsultation(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, claims []string, record *models.MedicalRecord) error
}

// RecordFilter narrows medical record queries.
type RecordFilter struct {
	PetIDs          []string
	StoreID         string
	OwnerID         string
	IncludeArchived bool
	Limit           int
}

// MedicalRecordRepository is the durable store of medical records.
type MedicalRecordRepository interface {
	// GetByID returns archived records too.
	GetByID(ctx context.Context, id string) (*models.MedicalRecord, error)
	// Find returns records newest visit first.
	Find(ctx context.Context, f RecordFilter) ([]models.MedicalRecord, error)
	Update(ctx context.Context, r *models.MedicalRecord) error
	AddAttachment(ctx context.Context, att *models.MedicalRecordAttachment) error
	GetAttachment(ctx context.Context, id string) (*models.MedicalRecordAttachment, error)
}
