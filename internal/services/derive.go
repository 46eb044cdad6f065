package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/models"
)

const dateLayout = "2006-01-02"

const (
	slotClaimPrefix   = "slot|"
	activeClaimPrefix = "active|"
)

// AppointmentNumber formats a sequence value as a human-facing appointment number.
func AppointmentNumber(seq int64) string {
	return fmt.Sprintf("APT-%08d", seq)
}

// InitialStatus is the status a new booking starts in.
func InitialStatus(bt models.BookingType) models.AppointmentStatus {
	if bt == models.BookingEmergency {
		return models.StatusPendingApproval
	}
	return models.StatusScheduled
}

// ClaimKeys lists the uniqueness keys an appointment holds in its current state.
// A non-emergency appointment that is scheduled or confirmed holds its
// (store, date, slot). An active appointment holds (pet, owner) for each of its
// pets, additionally keyed by store when scope is config.ActiveScopeStore.
func ClaimKeys(a *models.Appointment, scope string) []string {
	var keys []string
	if a.Archived() {
		return keys
	}
	if a.Status.IsActive() {
		for _, petID := range a.PetIDs() {
			key := activeClaimPrefix + petID + "|" + a.OwnerID
			if scope == config.ActiveScopeStore {
				key += "|" + a.StoreID
			}
			keys = append(keys, key)
		}
	}
	if a.BookingType != models.BookingEmergency && a.Status.HoldsSlot() &&
		a.AppointmentDate != "" && a.TimeSlot != "" {
		keys = append(keys, slotClaimPrefix+a.StoreID+"|"+a.AppointmentDate+"|"+a.TimeSlot)
	}
	return keys
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, validationf("Invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// daysBetween counts calendar days from today to date, ignoring clock time.
func daysBetween(today, date time.Time) int {
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// CheckBookingWindow enforces how far ahead an owner may book. Routine visits
// fall within the configured window, walk-ins are for today or tomorrow.
// Emergencies are not constrained.
func CheckBookingWindow(bt models.BookingType, date string, now time.Time, w config.BookingConfig) error {
	if bt == models.BookingEmergency {
		return nil
	}
	d, err := parseDate(date)
	if err != nil {
		return err
	}
	days := daysBetween(now, d)
	switch bt {
	case models.BookingRoutine:
		if days < w.RoutineMinDaysAhead || days > w.RoutineMaxDaysAhead {
			return validationf("Routine appointments must be booked %d to %d days in advance",
				w.RoutineMinDaysAhead, w.RoutineMaxDaysAhead)
		}
	case models.BookingWalkIn:
		if days != 0 && days != 1 {
			return validationf("Walk-in appointments must be for today or tomorrow")
		}
	}
	return nil
}

// ClinicalPayload is what the clinician submits when closing a consultation.
type ClinicalPayload struct {
	Diagnosis        string                     `json:"diagnosis"`
	Treatment        *string                    `json:"treatment"`
	Notes            string                     `json:"notes"`
	Medications      []models.Medication        `json:"medications"`
	Procedures       []models.Procedure         `json:"procedures"`
	Vaccinations     []models.Vaccination       `json:"vaccinations"`
	Tests            []models.LabTest           `json:"tests"`
	Prescriptions    []models.Prescription      `json:"prescriptions"`
	FollowUpRequired bool                       `json:"followUpRequired"`
	FollowUpDate     *time.Time                 `json:"followUpDate"`
	FollowUpNotes    string                     `json:"followUpNotes"`
	TotalCost        float64                    `json:"totalCost"`
	AmountPaid       float64                    `json:"amountPaid"`
	PaymentStatus    models.RecordPaymentStatus `json:"paymentStatus"`
}

// NormalizeClinicalPayload trims text, replaces absent lists with empty ones,
// defaults the payment status and gives every vaccination without a due date
// one a year after the visit.
func NormalizeClinicalPayload(p ClinicalPayload, visit time.Time) ClinicalPayload {
	p.Diagnosis = strings.TrimSpace(p.Diagnosis)
	if p.Treatment != nil {
		t := strings.TrimSpace(*p.Treatment)
		p.Treatment = &t
	}
	p.Notes = strings.TrimSpace(p.Notes)
	p.FollowUpNotes = strings.TrimSpace(p.FollowUpNotes)

	if p.Medications == nil {
		p.Medications = []models.Medication{}
	}
	if p.Procedures == nil {
		p.Procedures = []models.Procedure{}
	}
	if p.Tests == nil {
		p.Tests = []models.LabTest{}
	}
	if p.Prescriptions == nil {
		p.Prescriptions = []models.Prescription{}
	}
	vaccinations := make([]models.Vaccination, len(p.Vaccinations))
	for i, v := range p.Vaccinations {
		if v.NextDueDate == nil {
			due := visit.AddDate(1, 0, 0)
			v.NextDueDate = &due
		}
		vaccinations[i] = v
	}
	p.Vaccinations = vaccinations

	if p.FollowUpDate != nil {
		p.FollowUpRequired = true
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = models.RecordPaymentPending
	}
	return p
}

// Validate checks a normalized payload.
func (p ClinicalPayload) Validate() error {
	if p.Diagnosis == "" {
		return validationf("Diagnosis is required")
	}
	if p.Treatment == nil {
		return validationf("Treatment is required")
	}
	if !p.PaymentStatus.Valid() {
		return validationf("Invalid payment status %q", p.PaymentStatus)
	}
	if p.TotalCost < 0 || p.AmountPaid < 0 {
		return validationf("Costs cannot be negative")
	}
	return nil
}

// newMedicalRecord builds the record a completed consultation produces for one pet.
func newMedicalRecord(a *models.Appointment, petID string, actor ActorContext, p ClinicalPayload, visit time.Time) *models.MedicalRecord {
	rec := &models.MedicalRecord{
		BaseModel:        models.BaseModel{ID: uuid.New().String()},
		PetID:            petID,
		OwnerID:          a.OwnerID,
		StoreID:          a.StoreID,
		StoreName:        a.StoreName,
		StaffID:          actor.UserID,
		AppointmentID:    a.ID,
		VisitDate:        visit,
		Diagnosis:        p.Diagnosis,
		Treatment:        *p.Treatment,
		Notes:            p.Notes,
		Medications:      p.Medications,
		Procedures:       p.Procedures,
		Vaccinations:     p.Vaccinations,
		Tests:            p.Tests,
		Prescriptions:    p.Prescriptions,
		FollowUpRequired: p.FollowUpRequired,
		FollowUpDate:     p.FollowUpDate,
		FollowUpNotes:    p.FollowUpNotes,
		TotalCost:        p.TotalCost,
		AmountPaid:       p.AmountPaid,
		PaymentStatus:    p.PaymentStatus,
		CreatedBy:        actor.UserID,
	}
	rec.Activate()
	return rec
}

// applyClinical copies the consultation outcome onto the appointment.
func applyClinical(a *models.Appointment, p ClinicalPayload) {
	a.Diagnosis = p.Diagnosis
	a.Treatment = *p.Treatment
	a.ClinicalNotes = p.Notes
	a.FollowUpRequired = p.FollowUpRequired
	a.FollowUpDate = p.FollowUpDate
}
