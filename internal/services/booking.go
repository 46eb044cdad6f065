package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

const minEmergencyReason = 10

// BookingRequest is an owner's request for a visit.
type BookingRequest struct {
	PetID                    string             `json:"petId"`
	PetIDs                   []string           `json:"petIds"`
	StoreID                  string             `json:"storeId"`
	ServiceID                string             `json:"serviceId"`
	AppointmentDate          string             `json:"appointmentDate"`
	TimeSlot                 string             `json:"timeSlot"`
	BookingType              models.BookingType `json:"bookingType"`
	VisitType                models.VisitType   `json:"visitType"`
	Reason                   string             `json:"reason"`
	Symptoms                 string             `json:"symptoms"`
	IsExistingCondition      bool               `json:"isExistingCondition"`
	ExistingConditionDetails string             `json:"existingConditionDetails"`
	Notes                    string             `json:"notes"`
}

// StaffBookingRequest is a booking entered by clinic staff on behalf of an owner.
type StaffBookingRequest struct {
	BookingRequest
	OwnerID string `json:"ownerId"`
}

// petIDs returns the distinct pets of the request in order.
func (r BookingRequest) petIDs() []string {
	ids := r.PetIDs
	if len(ids) == 0 && r.PetID != "" {
		ids = []string{r.PetID}
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (r *BookingRequest) normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
	r.Symptoms = strings.TrimSpace(r.Symptoms)
	r.Notes = strings.TrimSpace(r.Notes)
	r.ExistingConditionDetails = strings.TrimSpace(r.ExistingConditionDetails)
	r.AppointmentDate = strings.TrimSpace(r.AppointmentDate)
	r.TimeSlot = strings.TrimSpace(r.TimeSlot)
	if r.BookingType == "" {
		r.BookingType = models.BookingRoutine
	}
	if r.VisitType == "" {
		r.VisitType = models.VisitCheckup
	}
}

// BookingService creates appointments and answers appointment queries.
type BookingService struct {
	*core
	slots  *SlotEngine
	window config.BookingConfig
}

// Book creates an appointment for the actor's own pet or pets.
func (s *BookingService) Book(ctx context.Context, actor ActorContext, req BookingRequest) (*models.Appointment, error) {
	if actor.UserID == "" {
		return nil, accessDenied("Authentication required")
	}
	petIDs := req.petIDs()
	if len(petIDs) == 0 {
		return nil, validationf("Pet ID is required")
	}
	for _, id := range petIDs {
		pet, err := s.pet(ctx, id)
		if err != nil {
			return nil, err
		}
		if pet.OwnerID != actor.UserID {
			return nil, accessDenied("Access denied - Pet does not belong to user")
		}
	}

	req.normalize()
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := CheckBookingWindow(req.BookingType, req.AppointmentDate, s.now(), s.window); err != nil {
		return nil, err
	}
	if req.StoreID == "" {
		return nil, validationf("Store ID is required")
	}

	a, err := s.draft(ctx, req, petIDs, actor.UserID, req.StoreID)
	if err != nil {
		return nil, err
	}
	a.CreatedBy = actor.UserID
	return a, s.insert(ctx, a)
}

// CreateForStore books on behalf of an owner at the actor's clinic. The
// owner-facing booking window does not apply.
func (s *BookingService) CreateForStore(ctx context.Context, actor ActorContext, req StaffBookingRequest) (*models.Appointment, error) {
	if err := actor.requireStore(); err != nil {
		return nil, err
	}
	if req.OwnerID == "" {
		return nil, validationf("Owner ID is required")
	}
	if _, err := s.dir.GetUser(ctx, req.OwnerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Owner not found")
		}
		return nil, storageError(s.log, "directory.user", err, fields{"ownerId": req.OwnerID})
	}
	petIDs := req.petIDs()
	if len(petIDs) == 0 {
		return nil, validationf("Pet ID is required")
	}
	for _, id := range petIDs {
		pet, err := s.pet(ctx, id)
		if err != nil {
			return nil, err
		}
		if pet.OwnerID != req.OwnerID {
			return nil, validationf("Pet %s does not belong to the selected owner", id)
		}
	}

	req.normalize()
	if err := s.validate(req.BookingRequest); err != nil {
		return nil, err
	}

	a, err := s.draft(ctx, req.BookingRequest, petIDs, req.OwnerID, actor.StoreID)
	if err != nil {
		return nil, err
	}
	a.CreatedBy = actor.UserID
	return a, s.insert(ctx, a)
}

func (s *BookingService) validate(req BookingRequest) error {
	if !req.BookingType.Valid() {
		return validationf("Invalid booking type %q", req.BookingType)
	}
	if !req.VisitType.Valid() {
		return validationf("Invalid visit type %q", req.VisitType)
	}
	if req.BookingType == models.BookingEmergency {
		if utf8.RuneCountInString(req.Reason) < minEmergencyReason {
			return validationf("Emergency bookings require a detailed reason (minimum 10 characters)")
		}
	} else {
		if req.AppointmentDate == "" {
			return validationf("Appointment date is required for routine and walk-in bookings")
		}
		if req.TimeSlot == "" {
			return validationf("Time slot is required for routine and walk-in bookings")
		}
	}
	if req.AppointmentDate != "" {
		if _, err := parseDate(req.AppointmentDate); err != nil {
			return err
		}
	}
	if req.TimeSlot != "" && !s.slots.Policy().Offers(req.TimeSlot) {
		return validationf("Invalid time slot %q", req.TimeSlot)
	}
	return nil
}

// draft assembles the unsaved appointment.
func (s *BookingService) draft(ctx context.Context, req BookingRequest, petIDs []string, ownerID, storeID string) (*models.Appointment, error) {
	store, err := s.dir.GetStoreByTenantID(ctx, storeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Veterinary store not found")
	}
	if err != nil {
		return nil, storageError(s.log, "directory.store", err, fields{"storeId": storeID})
	}

	reason := req.Reason
	if reason == "" {
		reason = "Routine checkup"
	}
	status := InitialStatus(req.BookingType)
	a := &models.Appointment{
		PetID:                    petIDs[0],
		OwnerID:                  ownerID,
		StoreID:                  storeID,
		StoreName:                store.Name,
		AppointmentDate:          req.AppointmentDate,
		TimeSlot:                 req.TimeSlot,
		BookingType:              req.BookingType,
		VisitType:                req.VisitType,
		Reason:                   reason,
		Symptoms:                 req.Symptoms,
		IsExistingCondition:      req.IsExistingCondition,
		ExistingConditionDetails: req.ExistingConditionDetails,
		Notes:                    req.Notes,
		Status:                   status,
		PaymentStatus:            models.PaymentPending,
	}
	a.Activate()
	if len(petIDs) > 1 {
		a.IsMultiplePets = true
		for _, id := range petIDs {
			a.Pets = append(a.Pets, models.AppointmentPet{PetID: id, Status: status})
		}
	}

	if req.ServiceID != "" {
		svc, err := s.dir.GetService(ctx, req.ServiceID, storeID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Service not found")
		}
		if err != nil {
			return nil, storageError(s.log, "directory.service", err, fields{"serviceId": req.ServiceID})
		}
		a.ServiceID = svc.ID
		a.Cost = svc.Price
	}
	return a, nil
}

// insert runs the conflict pre-checks, numbers the appointment and stores it
// together with its claims. The claims decide races the pre-checks miss.
func (s *BookingService) insert(ctx context.Context, a *models.Appointment) error {
	for _, petID := range a.PetIDs() {
		f := repository.AppointmentFilter{PetID: petID, OwnerID: a.OwnerID, Statuses: models.ActiveStatuses}
		if s.scope == config.ActiveScopeStore {
			f.StoreID = a.StoreID
		}
		n, err := s.appts.Count(ctx, f)
		if err != nil {
			return storageError(s.log, "booking.active_check", err, fields{"petId": petID})
		}
		if n > 0 {
			return conflict(activeExistsMsg)
		}
	}

	if a.BookingType != models.BookingEmergency {
		for _, petID := range a.PetIDs() {
			n, err := s.appts.Count(ctx, repository.AppointmentFilter{
				PetID:         petID,
				OwnerID:       a.OwnerID,
				Date:          a.AppointmentDate,
				TimeSlot:      a.TimeSlot,
				ExcludeStatus: models.StatusCancelled,
			})
			if err != nil {
				return storageError(s.log, "booking.duplicate_check", err, fields{"petId": petID})
			}
			if n > 0 {
				return conflict("An appointment for this pet already exists at the selected time")
			}
		}
		free, err := s.slots.IsSlotFree(ctx, a.StoreID, a.AppointmentDate, a.TimeSlot)
		if err != nil {
			return err
		}
		if !free {
			return conflict(slotTakenMsg)
		}
	}

	seq, err := s.appts.NextNumber(ctx)
	if err != nil {
		return storageError(s.log, "booking.number", err, nil)
	}
	a.AppointmentNumber = AppointmentNumber(seq)

	if err := s.appts.Create(ctx, a, ClaimKeys(a, s.scope)); err != nil {
		return writeError(s.log, "booking.create", err, fields{"petId": a.PetID, "storeId": a.StoreID})
	}
	s.log.Info().Str("appointmentId", a.ID).Str("number", a.AppointmentNumber).
		Str("storeId", a.StoreID).Str("bookingType", string(a.BookingType)).Msg("appointment booked")
	return nil
}

// ListForOwner lists the actor's appointments, optionally by status.
func (s *BookingService) ListForOwner(ctx context.Context, actor ActorContext, status string) ([]models.Appointment, error) {
	if actor.UserID == "" {
		return nil, accessDenied("Authentication required")
	}
	f := repository.AppointmentFilter{OwnerID: actor.UserID}
	if status != "" {
		st := models.AppointmentStatus(status)
		if !st.Valid() {
			return nil, validationf("Invalid status %q", status)
		}
		f.Statuses = []models.AppointmentStatus{st}
	}
	list, _, err := s.appts.Find(ctx, f)
	if err != nil {
		return nil, storageError(s.log, "appointments.list_owner", err, fields{"ownerId": actor.UserID})
	}
	return list, nil
}

// GetForOwner returns one of the actor's appointments.
func (s *BookingService) GetForOwner(ctx context.Context, actor ActorContext, id string) (*models.Appointment, error) {
	a, err := s.appointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != actor.UserID {
		return nil, accessDenied("Access denied - Appointment does not belong to user")
	}
	return a, nil
}

// StoreQuery filters the clinic appointment list.
type StoreQuery struct {
	Date        string
	Status      string
	PetID       string
	BookingType string
	Page        int
	Limit       int
}

// ListForStore lists appointments of the actor's clinic.
func (s *BookingService) ListForStore(ctx context.Context, actor ActorContext, q StoreQuery) ([]models.Appointment, int64, error) {
	if err := actor.requireStore(); err != nil {
		return nil, 0, err
	}
	f := repository.AppointmentFilter{StoreID: actor.StoreID, PetID: q.PetID}
	if q.Date != "" {
		if _, err := parseDate(q.Date); err != nil {
			return nil, 0, err
		}
		f.Date = q.Date
	}
	if q.Status != "" {
		st := models.AppointmentStatus(q.Status)
		if !st.Valid() {
			return nil, 0, validationf("Invalid status %q", q.Status)
		}
		f.Statuses = []models.AppointmentStatus{st}
	}
	if q.BookingType != "" {
		bt := models.BookingType(q.BookingType)
		if !bt.Valid() {
			return nil, 0, validationf("Invalid booking type %q", q.BookingType)
		}
		f.BookingType = bt
	}
	f.Limit, f.Offset = pageBounds(q.Page, q.Limit)

	list, total, err := s.appts.Find(ctx, f)
	if err != nil {
		return nil, 0, storageError(s.log, "appointments.list_store", err, fields{"storeId": actor.StoreID})
	}
	return list, total, nil
}

// GetForStore returns an appointment of the actor's clinic.
func (s *BookingService) GetForStore(ctx context.Context, actor ActorContext, id string) (*models.Appointment, error) {
	return s.storeAppointment(ctx, actor, id)
}
