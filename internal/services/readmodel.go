package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

// AppointmentView is an appointment with its referenced entities resolved for display.
type AppointmentView struct {
	*models.Appointment
	Pet      *models.Pet     `json:"pet,omitempty"`
	PetsInfo []*models.Pet   `json:"petsInfo,omitempty"`
	Owner    *models.User    `json:"owner,omitempty"`
	Service  *models.Service `json:"service,omitempty"`
}

// RecordView is a medical record with its pet and staff member resolved.
type RecordView struct {
	*models.MedicalRecord
	Pet        *models.Pet  `json:"pet,omitempty"`
	Staff      *models.User `json:"staff,omitempty"`
	BalanceDue float64      `json:"balanceDue"`
}

// Presenter assembles read models. It never writes and a missing reference
// only leaves the corresponding field empty.
type Presenter struct {
	dir Directory
	log zerolog.Logger
}

// NewPresenter creates a Presenter.
func NewPresenter(dir Directory, log zerolog.Logger) *Presenter {
	return &Presenter{dir: dir, log: log}
}

// lookups memoizes directory reads for one response.
type lookups struct {
	p     *Presenter
	ctx   context.Context
	pets  map[string]*models.Pet
	users map[string]*models.User
	svcs  map[string]*models.Service
}

func (p *Presenter) lookups(ctx context.Context) *lookups {
	return &lookups{
		p:     p,
		ctx:   ctx,
		pets:  map[string]*models.Pet{},
		users: map[string]*models.User{},
		svcs:  map[string]*models.Service{},
	}
}

func (l *lookups) miss(kind, id string, err error) {
	if !errors.Is(err, repository.ErrNotFound) {
		l.p.log.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("read model lookup failed")
	}
}

func (l *lookups) pet(id string) *models.Pet {
	if id == "" {
		return nil
	}
	if v, ok := l.pets[id]; ok {
		return v
	}
	v, err := l.p.dir.GetPet(l.ctx, id)
	if err != nil {
		l.miss("pet", id, err)
		v = nil
	}
	l.pets[id] = v
	return v
}

func (l *lookups) user(id string) *models.User {
	if id == "" {
		return nil
	}
	if v, ok := l.users[id]; ok {
		return v
	}
	v, err := l.p.dir.GetUser(l.ctx, id)
	if err != nil {
		l.miss("user", id, err)
		v = nil
	}
	l.users[id] = v
	return v
}

func (l *lookups) service(id, storeID string) *models.Service {
	if id == "" {
		return nil
	}
	if v, ok := l.svcs[id]; ok {
		return v
	}
	v, err := l.p.dir.GetService(l.ctx, id, storeID)
	if err != nil {
		l.miss("service", id, err)
		v = nil
	}
	l.svcs[id] = v
	return v
}

func (l *lookups) appointment(a *models.Appointment) AppointmentView {
	v := AppointmentView{
		Appointment: a,
		Pet:         l.pet(a.PetID),
		Owner:       l.user(a.OwnerID),
		Service:     l.service(a.ServiceID, a.StoreID),
	}
	if a.IsMultiplePets {
		for _, entry := range a.Pets {
			if pet := l.pet(entry.PetID); pet != nil {
				v.PetsInfo = append(v.PetsInfo, pet)
			}
		}
	}
	return v
}

func (l *lookups) record(r *models.MedicalRecord) RecordView {
	return RecordView{
		MedicalRecord: r,
		Pet:           l.pet(r.PetID),
		Staff:         l.user(r.StaffID),
		BalanceDue:    r.BalanceDue(),
	}
}

// Appointment resolves one appointment.
func (p *Presenter) Appointment(ctx context.Context, a *models.Appointment) AppointmentView {
	return p.lookups(ctx).appointment(a)
}

// Appointments resolves a list of appointments.
func (p *Presenter) Appointments(ctx context.Context, list []models.Appointment) []AppointmentView {
	l := p.lookups(ctx)
	out := make([]AppointmentView, 0, len(list))
	for i := range list {
		out = append(out, l.appointment(&list[i]))
	}
	return out
}

// Record resolves one medical record.
func (p *Presenter) Record(ctx context.Context, r *models.MedicalRecord) RecordView {
	return p.lookups(ctx).record(r)
}

// Records resolves a list of medical records.
func (p *Presenter) Records(ctx context.Context, list []models.MedicalRecord) []RecordView {
	l := p.lookups(ctx)
	out := make([]RecordView, 0, len(list))
	for i := range list {
		out = append(out, l.record(&list[i]))
	}
	return out
}
