package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

// Policy is the bookable grid of a clinic day.
type Policy struct {
	DayStart string // HH:MM
	DayEnd   string // HH:MM
	Interval time.Duration
}

// PolicyFromConfig builds a Policy from slot settings.
func PolicyFromConfig(c config.SlotConfig) Policy {
	return Policy{DayStart: c.DayStart, DayEnd: c.DayEnd, Interval: c.Interval()}
}

func (p Policy) bounds() (time.Duration, time.Duration, error) {
	start, err := time.Parse("15:04", p.DayStart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid day start %q: %w", p.DayStart, err)
	}
	end, err := time.Parse("15:04", p.DayEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid day end %q: %w", p.DayEnd, err)
	}
	return sinceMidnight(start), sinceMidnight(end), nil
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

// Validate rejects windows that cannot hold a single slot.
func (p Policy) Validate() error {
	start, end, err := p.bounds()
	if err != nil {
		return err
	}
	if p.Interval <= 0 || p.Interval%time.Minute != 0 {
		return fmt.Errorf("slot interval must be a positive number of minutes")
	}
	if end-start < p.Interval {
		return fmt.Errorf("window %s-%s cannot hold a %s slot", p.DayStart, p.DayEnd, p.Interval)
	}
	return nil
}

// Labels lists the slots of the day in order. Invalid policies have none.
func (p Policy) Labels() []string {
	if p.Validate() != nil {
		return nil
	}
	start, end, _ := p.bounds()
	var labels []string
	for t := start; t+p.Interval <= end; t += p.Interval {
		labels = append(labels, clock(t)+"-"+clock(t+p.Interval))
	}
	return labels
}

// Offers reports whether label is one of the policy's slots.
func (p Policy) Offers(label string) bool {
	for _, l := range p.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// SlotEngine answers availability questions from live appointment data.
type SlotEngine struct {
	appts  repository.AppointmentRepository
	policy Policy
	log    zerolog.Logger
}

// NewSlotEngine creates a SlotEngine over a validated policy.
func NewSlotEngine(appts repository.AppointmentRepository, policy Policy, log zerolog.Logger) (*SlotEngine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &SlotEngine{appts: appts, policy: policy, log: log}, nil
}

// Policy returns the grid the engine serves.
func (e *SlotEngine) Policy() Policy { return e.policy }

func occupying(storeID, date string) repository.AppointmentFilter {
	return repository.AppointmentFilter{
		StoreID:            storeID,
		Date:               date,
		Statuses:           []models.AppointmentStatus{models.StatusScheduled, models.StatusConfirmed},
		ExcludeBookingType: models.BookingEmergency,
	}
}

// ListAvailableSlots returns the free slots of a store on date, in day order.
func (e *SlotEngine) ListAvailableSlots(ctx context.Context, storeID, date string) ([]string, error) {
	if storeID == "" {
		return nil, validationf("Store ID is required")
	}
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	booked, _, err := e.appts.Find(ctx, occupying(storeID, date))
	if err != nil {
		return nil, storageError(e.log, "slots.list", err, map[string]interface{}{"storeId": storeID, "date": date})
	}
	taken := make(map[string]bool, len(booked))
	for _, a := range booked {
		taken[a.TimeSlot] = true
	}
	free := []string{}
	for _, label := range e.policy.Labels() {
		if !taken[label] {
			free = append(free, label)
		}
	}
	return free, nil
}

// IsSlotFree reports whether no scheduled or confirmed non-emergency
// appointment holds the slot.
func (e *SlotEngine) IsSlotFree(ctx context.Context, storeID, date, slot string) (bool, error) {
	f := occupying(storeID, date)
	f.TimeSlot = slot
	n, err := e.appts.Count(ctx, f)
	if err != nil {
		return false, storageError(e.log, "slots.check", err, map[string]interface{}{"storeId": storeID, "date": date, "slot": slot})
	}
	return n == 0, nil
}
