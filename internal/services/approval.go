package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

// AcceptOverrides optionally reschedules an application while accepting it.
type AcceptOverrides struct {
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
	Notes           string `json:"notes"`
}

// AppointmentPatch is a free-form staff edit. Nil fields are left unchanged.
type AppointmentPatch struct {
	AppointmentDate  *string               `json:"appointmentDate"`
	TimeSlot         *string               `json:"timeSlot"`
	StaffID          *string               `json:"staffId"`
	ServiceID        *string               `json:"serviceId"`
	VisitType        *models.VisitType     `json:"visitType"`
	Reason           *string               `json:"reason"`
	Symptoms         *string               `json:"symptoms"`
	Notes            *string               `json:"notes"`
	Cost             *float64              `json:"cost"`
	PaymentStatus    *models.PaymentStatus `json:"paymentStatus"`
	Status           *string               `json:"status"`
	FollowUpRequired *bool                 `json:"followUpRequired"`
	FollowUpDate     *time.Time            `json:"followUpDate"`
}

// ApprovalService lets clinic staff triage and edit appointments.
type ApprovalService struct {
	*core
	slots *SlotEngine
}

// Accept confirms a pending application.
func (s *ApprovalService) Accept(ctx context.Context, actor ActorContext, id string, o AcceptOverrides) (*models.Appointment, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPendingApproval {
		return nil, conflict("Only pending applications can be accepted")
	}
	if date := strings.TrimSpace(o.AppointmentDate); date != "" {
		if _, err := parseDate(date); err != nil {
			return nil, err
		}
		a.AppointmentDate = date
	}
	if slot := strings.TrimSpace(o.TimeSlot); slot != "" {
		if !s.slots.Policy().Offers(slot) {
			return nil, validationf("Invalid time slot %q", slot)
		}
		a.TimeSlot = slot
	}
	if notes := strings.TrimSpace(o.Notes); notes != "" {
		a.Notes = notes
	}

	from := a.Status
	a.Status = models.StatusConfirmed
	a.SetPetStatuses(models.StatusConfirmed)
	a.IsApproved = true
	a.UpdatedBy = actor.UserID
	if err := s.transition(ctx, "approval.accept", a, from); err != nil {
		return nil, err
	}
	return a, nil
}

// Reject declines a pending application.
func (s *ApprovalService) Reject(ctx context.Context, actor ActorContext, id, reason string) (*models.Appointment, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPendingApproval {
		return nil, conflict("Only pending applications can be rejected")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Application rejected by clinic"
	}

	now := s.now()
	from := a.Status
	a.Status = models.StatusCancelled
	a.SetPetStatuses(models.StatusCancelled)
	a.IsDeclined = true
	a.DeclineReason = reason
	a.Notes = reason
	a.CancelledAt = &now
	a.UpdatedBy = actor.UserID
	if err := s.transition(ctx, "approval.reject", a, from); err != nil {
		return nil, err
	}
	return a, nil
}

// Update applies a staff edit. Store ownership is the only guard; the
// uniqueness claims still reject edits that would double-book.
func (s *ApprovalService) Update(ctx context.Context, actor ActorContext, id string, p AppointmentPatch) (*models.Appointment, error) {
	a, err := s.storeAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := a.Status

	if p.AppointmentDate != nil {
		date := strings.TrimSpace(*p.AppointmentDate)
		if date != "" {
			if _, err := parseDate(date); err != nil {
				return nil, err
			}
		}
		a.AppointmentDate = date
	}
	if p.TimeSlot != nil {
		slot := strings.TrimSpace(*p.TimeSlot)
		if slot != "" && !s.slots.Policy().Offers(slot) {
			return nil, validationf("Invalid time slot %q", slot)
		}
		a.TimeSlot = slot
	}
	if p.StaffID != nil {
		a.StaffID = strings.TrimSpace(*p.StaffID)
	}
	if p.ServiceID != nil {
		if err := s.applyService(ctx, a, strings.TrimSpace(*p.ServiceID)); err != nil {
			return nil, err
		}
	}
	if p.VisitType != nil {
		if !p.VisitType.Valid() {
			return nil, validationf("Invalid visit type %q", *p.VisitType)
		}
		a.VisitType = *p.VisitType
	}
	if p.Reason != nil {
		a.Reason = strings.TrimSpace(*p.Reason)
	}
	if p.Symptoms != nil {
		a.Symptoms = strings.TrimSpace(*p.Symptoms)
	}
	if p.Notes != nil {
		a.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Cost != nil {
		if *p.Cost < 0 {
			return nil, validationf("Cost cannot be negative")
		}
		a.Cost = *p.Cost
	}
	if p.PaymentStatus != nil {
		if !p.PaymentStatus.Valid() {
			return nil, validationf("Invalid payment status %q", *p.PaymentStatus)
		}
		a.PaymentStatus = *p.PaymentStatus
	}
	if p.FollowUpRequired != nil {
		a.FollowUpRequired = *p.FollowUpRequired
	}
	if p.FollowUpDate != nil {
		a.FollowUpDate = p.FollowUpDate
		a.FollowUpRequired = true
	}
	if p.Status != nil {
		st := models.AppointmentStatus(strings.TrimSpace(*p.Status))
		if !st.Valid() {
			return nil, validationf("Invalid status %q", *p.Status)
		}
		s.setStatus(a, st)
	}
	if a.BookingType != models.BookingEmergency && a.Status.HoldsSlot() &&
		(a.AppointmentDate == "" || a.TimeSlot == "") {
		return nil, validationf("Scheduled appointments need a date and a time slot")
	}

	a.UpdatedBy = actor.UserID
	if err := s.transition(ctx, "appointments.update", a, from); err != nil {
		return nil, err
	}
	return a, nil
}

// setStatus moves the appointment and its pets to st, stamping terminal times.
func (s *ApprovalService) setStatus(a *models.Appointment, st models.AppointmentStatus) {
	if a.Status == st {
		return
	}
	now := s.now()
	a.Status = st
	switch st {
	case models.StatusCancelled:
		a.CancelledAt = &now
	case models.StatusCompleted:
		a.CompletedAt = &now
	}
	if !st.IsActive() {
		a.SetPetStatuses(st)
		return
	}
	for i := range a.Pets {
		if a.Pets[i].Status != models.StatusCompleted {
			a.Pets[i].Status = st
		}
	}
}

func (s *ApprovalService) applyService(ctx context.Context, a *models.Appointment, serviceID string) error {
	if serviceID == "" {
		a.ServiceID = ""
		return nil
	}
	svc, err := s.dir.GetService(ctx, serviceID, a.StoreID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Service not found")
	}
	if err != nil {
		return storageError(s.log, "directory.service", err, fields{"serviceId": serviceID})
	}
	a.ServiceID = svc.ID
	a.Cost = svc.Price
	return nil
}

// ListPending lists the clinic's applications awaiting approval, by booking
// type and then newest first.
func (s *ApprovalService) ListPending(ctx context.Context, actor ActorContext, bookingType string, page, limit int) ([]models.Appointment, int64, error) {
	if err := actor.requireStore(); err != nil {
		return nil, 0, err
	}
	f := repository.AppointmentFilter{
		StoreID:  actor.StoreID,
		Statuses: []models.AppointmentStatus{models.StatusPendingApproval},
		Order:    repository.OrderNewest,
	}
	if bookingType != "" {
		bt := models.BookingType(bookingType)
		if !bt.Valid() {
			return nil, 0, validationf("Invalid booking type %q", bookingType)
		}
		f.BookingType = bt
	}
	f.Limit, f.Offset = pageBounds(page, limit)

	list, total, err := s.appts.Find(ctx, f)
	if err != nil {
		return nil, 0, storageError(s.log, "approval.list_pending", err, fields{"storeId": actor.StoreID})
	}
	return list, total, nil
}
