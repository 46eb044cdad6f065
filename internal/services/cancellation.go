package services

import (
	"context"
	"strings"

	"petcare-vet-server/internal/models"
)

// CancellationService cancels appointments for owners and clinic staff.
type CancellationService struct {
	*core
}

// Cancel cancels a scheduled or pending appointment and releases its claims.
func (s *CancellationService) Cancel(ctx context.Context, actor ActorContext, id, reason string) (*models.Appointment, error) {
	var (
		a   *models.Appointment
		err error
	)
	if actor.IsStaff() {
		a, err = s.storeAppointment(ctx, actor, id)
		if err != nil {
			return nil, err
		}
	} else {
		a, err = s.appointment(ctx, id)
		if err != nil {
			return nil, err
		}
		if a.OwnerID != actor.UserID {
			return nil, accessDenied("Access denied - Appointment does not belong to user")
		}
	}

	if a.Status != models.StatusScheduled && a.Status != models.StatusPendingApproval {
		return nil, conflict("Only scheduled or pending approval appointments can be cancelled")
	}

	now := s.now()
	from := a.Status
	a.Status = models.StatusCancelled
	a.SetPetStatuses(models.StatusCancelled)
	a.CancelledAt = &now
	if reason = strings.TrimSpace(reason); reason != "" {
		a.CancellationReason = reason
	}
	a.UpdatedBy = actor.UserID
	if err := s.transition(ctx, "appointments.cancel", a, from); err != nil {
		return nil, err
	}
	return a, nil
}
