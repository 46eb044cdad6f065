package services

import (
	"context"
	"time"

	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

const startHistoryLimit = 10

// StartResult is the consultation opening view: the appointment plus recent history.
type StartResult struct {
	Appointment     *models.Appointment               `json:"appointment"`
	PreviousRecords []models.MedicalRecord            `json:"previousRecords"`
	RecordsByPet    map[string][]models.MedicalRecord `json:"recordsByPet"`
	TotalVisits     int                               `json:"totalVisits"`
	LastVisit       *time.Time                        `json:"lastVisit"`
	PetsCount       int                               `json:"petsCount"`
}

// CompleteResult is the outcome of closing a single-pet consultation.
type CompleteResult struct {
	Appointment   *models.Appointment   `json:"appointment"`
	MedicalRecord *models.MedicalRecord `json:"medicalRecord"`
}

// PetCompleteResult is the outcome of closing one pet of a multi-pet consultation.
type PetCompleteResult struct {
	Appointment      *models.Appointment   `json:"appointment"`
	MedicalRecord    *models.MedicalRecord `json:"medicalRecord"`
	AllPetsCompleted bool                  `json:"allPetsCompleted"`
	RemainingPets    int                   `json:"remainingPets"`
}

// ConsultationStats summarises a pet's history at a clinic.
type ConsultationStats struct {
	TotalVisits    int        `json:"totalVisits"`
	LastVisit      *time.Time `json:"lastVisit"`
	TotalSpent     float64    `json:"totalSpent"`
	PendingBalance float64    `json:"pendingBalance"`
}

// ConsultationDetails is the clinician's view of an appointment.
type ConsultationDetails struct {
	Appointment    *models.Appointment    `json:"appointment"`
	MedicalHistory []models.MedicalRecord `json:"medicalHistory"`
	Stats          ConsultationStats      `json:"stats"`
}

// ConsultationService runs the in-progress phase of an appointment.
type ConsultationService struct {
	*core
}

// Start opens the consultation of a confirmed or scheduled appointment.
func (s *ConsultationService) Start(ctx context.Context, actor ActorContext, id string) (*StartResult, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusConfirmed && a.Status != models.StatusScheduled {
		return nil, conflict("Only confirmed or scheduled appointments can be started")
	}

	history, err := s.records.Find(ctx, repository.RecordFilter{PetIDs: a.PetIDs(), Limit: startHistoryLimit})
	if err != nil {
		return nil, storageError(s.log, "consultation.history", err, fields{"appointmentId": a.ID})
	}

	from := a.Status
	a.Status = models.StatusInProgress
	a.SetPetStatuses(models.StatusInProgress)
	a.UpdatedBy = actor.UserID
	if err := s.transition(ctx, "consultation.start", a, from); err != nil {
		return nil, err
	}

	res := &StartResult{
		Appointment:     a,
		PreviousRecords: history,
		RecordsByPet:    make(map[string][]models.MedicalRecord),
		TotalVisits:     len(history),
		PetsCount:       len(a.PetIDs()),
	}
	for _, r := range history {
		res.RecordsByPet[r.PetID] = append(res.RecordsByPet[r.PetID], r)
	}
	if len(history) > 0 {
		last := history[0].VisitDate
		res.LastVisit = &last
	}
	return res, nil
}

func (s *ConsultationService) payload(p ClinicalPayload, visit time.Time) (ClinicalPayload, error) {
	p = NormalizeClinicalPayload(p, visit)
	return p, p.Validate()
}

// Complete closes a single-pet consultation and writes its medical record.
func (s *ConsultationService) Complete(ctx context.Context, actor ActorContext, id string, p ClinicalPayload) (*CompleteResult, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusInProgress {
		return nil, conflict("Only in-progress consultations can be completed")
	}
	if a.IsMultiplePets {
		return nil, conflict("Multi-pet appointments are completed one pet at a time")
	}
	now := s.now()
	p, err = s.payload(p, now)
	if err != nil {
		return nil, err
	}

	rec := newMedicalRecord(a, a.PetID, actor, p, now)
	from := a.Status
	a.Status = models.StatusCompleted
	a.CompletedAt = &now
	a.UpdatedBy = actor.UserID
	applyClinical(a, p)
	if err := s.complete(ctx, a, from, rec); err != nil {
		return nil, err
	}
	return &CompleteResult{Appointment: a, MedicalRecord: rec}, nil
}

// CompleteForPet closes one pet of a consultation. The appointment completes
// with its last pet.
func (s *ConsultationService) CompleteForPet(ctx context.Context, actor ActorContext, id, petID string, p ClinicalPayload) (*PetCompleteResult, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusInProgress {
		return nil, conflict("Only in-progress consultations can be completed")
	}
	idx := a.PetIndex(petID)
	if !a.IsMultiplePets {
		if petID != a.PetID {
			return nil, notFound("Pet not found in this appointment")
		}
	} else if idx < 0 {
		return nil, notFound("Pet not found in this appointment")
	} else if a.Pets[idx].Status == models.StatusCompleted {
		return nil, conflict("Consultation for this pet is already completed")
	}

	now := s.now()
	p, err = s.payload(p, now)
	if err != nil {
		return nil, err
	}

	rec := newMedicalRecord(a, petID, actor, p, now)
	from := a.Status
	if idx >= 0 {
		a.Pets[idx].Status = models.StatusCompleted
		a.Pets[idx].MedicalRecordID = rec.ID
	}
	done := !a.IsMultiplePets || a.AllPetsCompleted()
	if done {
		a.Status = models.StatusCompleted
		a.CompletedAt = &now
		applyClinical(a, p)
	}
	a.UpdatedBy = actor.UserID
	if err := s.complete(ctx, a, from, rec); err != nil {
		return nil, err
	}
	return &PetCompleteResult{
		Appointment:      a,
		MedicalRecord:    rec,
		AllPetsCompleted: done,
		RemainingPets:    a.RemainingPets(),
	}, nil
}

func (s *ConsultationService) complete(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, rec *models.MedicalRecord) error {
	err := s.appts.CompleteConsultation(ctx, a, from, ClaimKeys(a, s.scope), rec)
	if err != nil {
		return writeError(s.log, "consultation.complete", err, fields{"appointmentId": a.ID, "petId": rec.PetID})
	}
	s.log.Info().Str("appointmentId", a.ID).Str("recordId", rec.ID).
		Str("petId", rec.PetID).Str("status", string(a.Status)).Msg("consultation completed")
	return nil
}

// Details returns the appointment with the pet's full history at its clinic.
func (s *ConsultationService) Details(ctx context.Context, actor ActorContext, id string) (*ConsultationDetails, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	history, err := s.records.Find(ctx, repository.RecordFilter{PetIDs: a.PetIDs(), StoreID: a.StoreID})
	if err != nil {
		return nil, storageError(s.log, "consultation.details", err, fields{"appointmentId": a.ID})
	}

	stats := ConsultationStats{TotalVisits: len(history)}
	if len(history) > 0 {
		last := history[0].VisitDate
		stats.LastVisit = &last
	}
	for i := range history {
		stats.TotalSpent += history[i].TotalCost
		stats.PendingBalance += history[i].BalanceDue()
	}
	return &ConsultationDetails{Appointment: a, MedicalHistory: history, Stats: stats}, nil
}
