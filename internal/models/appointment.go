package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPendingApproval AppointmentStatus = "pending_approval"
	StatusScheduled       AppointmentStatus = "scheduled"
	StatusConfirmed       AppointmentStatus = "confirmed"
	StatusInProgress      AppointmentStatus = "in_progress"
	StatusCompleted       AppointmentStatus = "completed"
	StatusCancelled       AppointmentStatus = "cancelled"
	StatusDeclined        AppointmentStatus = "declined"
	StatusNoShow          AppointmentStatus = "no_show"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusDeclined, StatusNoShow:
		return true
	}
	return false
}

// IsActive reports whether the appointment is not yet terminal.
func (s AppointmentStatus) IsActive() bool {
	switch s {
	case StatusPendingApproval, StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// HoldsSlot reports whether a non-emergency appointment in this status occupies its time slot.
func (s AppointmentStatus) HoldsSlot() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// ActiveStatuses lists every non-terminal status.
var ActiveStatuses = []AppointmentStatus{
	StatusPendingApproval, StatusScheduled, StatusConfirmed, StatusInProgress,
}

// BookingType represents how an appointment was requested
type BookingType string

const (
	BookingRoutine   BookingType = "routine"
	BookingWalkIn    BookingType = "walk_in"
	BookingEmergency BookingType = "emergency"
)

// Valid reports whether b is a known booking type.
func (b BookingType) Valid() bool {
	return b == BookingRoutine || b == BookingWalkIn || b == BookingEmergency
}

// VisitType represents the purpose of the visit
type VisitType string

const (
	VisitCheckup      VisitType = "checkup"
	VisitVaccination  VisitType = "vaccination"
	VisitFollowUp     VisitType = "follow_up"
	VisitConsultation VisitType = "consultation"
	VisitOther        VisitType = "other"
)

// Valid reports whether v is a known visit type.
func (v VisitType) Valid() bool {
	switch v {
	case VisitCheckup, VisitVaccination, VisitFollowUp, VisitConsultation, VisitOther:
		return true
	}
	return false
}

// PaymentStatus represents the payment state of an appointment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid || p == PaymentPartial || p == PaymentCancelled
}

// Appointment represents one scheduled veterinary visit
type Appointment struct {
	BaseModel
	Archivable
	AppointmentNumber string `gorm:"size:32;uniqueIndex" json:"appointmentNumber"`

	PetID     string `gorm:"size:36;index" json:"petId"`
	OwnerID   string `gorm:"size:36;index" json:"ownerId"`
	StoreID   string `gorm:"size:64;index" json:"storeId"`
	StoreName string `gorm:"size:255" json:"storeName,omitempty"`
	StaffID   string `gorm:"size:36" json:"staffId,omitempty"`
	ServiceID string `gorm:"size:36" json:"serviceId,omitempty"`

	AppointmentDate string      `gorm:"size:10;index" json:"appointmentDate,omitempty"` // YYYY-MM-DD
	TimeSlot        string      `gorm:"size:11" json:"timeSlot,omitempty"`              // HH:MM-HH:MM
	BookingType     BookingType `gorm:"size:20;not null" json:"bookingType"`
	VisitType       VisitType   `gorm:"size:20;not null" json:"visitType"`

	Reason                   string `gorm:"type:text" json:"reason"`
	Symptoms                 string `gorm:"type:text" json:"symptoms,omitempty"`
	IsExistingCondition      bool   `json:"isExistingCondition"`
	ExistingConditionDetails string `gorm:"type:text" json:"existingConditionDetails,omitempty"`
	Notes                    string `gorm:"type:text" json:"notes,omitempty"`

	IsApproved    bool   `json:"isApproved"`
	IsDeclined    bool   `json:"isDeclined"`
	DeclineReason string `gorm:"type:text" json:"declineReason,omitempty"`

	Diagnosis        string     `gorm:"type:text" json:"diagnosis,omitempty"`
	Treatment        string     `gorm:"type:text" json:"treatment,omitempty"`
	ClinicalNotes    string     `gorm:"type:text" json:"clinicalNotes,omitempty"`
	FollowUpRequired bool       `json:"followUpRequired"`
	FollowUpDate     *time.Time `json:"followUpDate,omitempty"`

	IsMultiplePets bool             `json:"isMultiplePets"`
	Pets           []AppointmentPet `gorm:"foreignKey:AppointmentID" json:"pets,omitempty"`

	Status        AppointmentStatus `gorm:"size:20;not null;index" json:"status"`
	Cost          float64           `json:"cost"`
	PaymentStatus PaymentStatus     `gorm:"size:20;not null" json:"paymentStatus"`

	CreatedBy          string     `gorm:"size:36" json:"createdBy,omitempty"`
	UpdatedBy          string     `gorm:"size:36" json:"updatedBy,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellationReason,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// TableName keeps veterinary tables apart from the rest of the platform.
func (Appointment) TableName() string { return "vet_appointments" }

// PetIDs returns every pet seen in this appointment.
func (a *Appointment) PetIDs() []string {
	if !a.IsMultiplePets || len(a.Pets) == 0 {
		return []string{a.PetID}
	}
	ids := make([]string, 0, len(a.Pets))
	for _, p := range a.Pets {
		ids = append(ids, p.PetID)
	}
	return ids
}

// PetIndex locates a sub-entry by pet id.
func (a *Appointment) PetIndex(petID string) int {
	for i := range a.Pets {
		if a.Pets[i].PetID == petID {
			return i
		}
	}
	return -1
}

// RemainingPets counts sub-entries not yet completed.
func (a *Appointment) RemainingPets() int {
	n := 0
	for _, p := range a.Pets {
		if p.Status != StatusCompleted {
			n++
		}
	}
	return n
}

// AllPetsCompleted reports whether every sub-entry is completed.
func (a *Appointment) AllPetsCompleted() bool {
	return len(a.Pets) > 0 && a.RemainingPets() == 0
}

// SetPetStatuses moves every sub-entry to status.
func (a *Appointment) SetPetStatuses(status AppointmentStatus) {
	for i := range a.Pets {
		a.Pets[i].Status = status
	}
}

// AppointmentPet is one pet within a multi-pet appointment
type AppointmentPet struct {
	BaseModel
	AppointmentID   string            `gorm:"size:36;index;not null" json:"appointmentId"`
	PetID           string            `gorm:"size:36;not null" json:"petId"`
	Status          AppointmentStatus `gorm:"size:20;not null" json:"status"`
	MedicalRecordID string            `gorm:"size:36" json:"medicalRecordId,omitempty"`
}

// TableName for AppointmentPet.
func (AppointmentPet) TableName() string { return "vet_appointment_pets" }

// AppointmentClaim reserves a contended key (a time slot or an active pet/owner pair)
// for one appointment. The primary key makes reservations exclusive.
type AppointmentClaim struct {
	ClaimKey      string    `gorm:"primaryKey;size:191"`
	AppointmentID string    `gorm:"size:36;index;not null"`
	CreatedAt     time.Time
}

// TableName for AppointmentClaim.
func (AppointmentClaim) TableName() string { return "vet_appointment_claims" }

// Sequence is a named monotonic counter.
type Sequence struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null"`
}

// TableName for Sequence.
func (Sequence) TableName() string { return "vet_sequences" }
