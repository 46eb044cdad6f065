// Package services implements the veterinary appointment and consultation
// lifecycle: booking, approval, consultations, cancellation and medical records.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

// Directory resolves platform-owned entities. Implementations return
// repository.ErrNotFound for unknown ids.
type Directory interface {
	GetPet(ctx context.Context, id string) (*models.Pet, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetService(ctx context.Context, id, storeID string) (*models.Service, error)
	GetStoreByTenantID(ctx context.Context, storeID string) (*models.Store, error)
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Appointments repository.AppointmentRepository
	Records      repository.MedicalRecordRepository
	Directory    Directory
	Logger       zerolog.Logger
	Now          func() time.Time // defaults to time.Now
}

// Services bundles the lifecycle services over one set of collaborators.
type Services struct {
	Slots         *SlotEngine
	Booking       *BookingService
	Approval      *ApprovalService
	Consultations *ConsultationService
	Cancellation  *CancellationService
	Records       *MedicalRecordService
	Presenter     *Presenter
}

// New wires the services from configuration.
func New(cfg *config.Config, d Deps) (*Services, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	c := &core{
		appts:   d.Appointments,
		records: d.Records,
		dir:     d.Directory,
		log:     d.Logger,
		now:     d.Now,
		scope:   cfg.Booking.ActiveScope,
	}
	slots, err := NewSlotEngine(d.Appointments, PolicyFromConfig(cfg.Slots), d.Logger)
	if err != nil {
		return nil, err
	}
	return &Services{
		Slots:         slots,
		Booking:       &BookingService{core: c, slots: slots, window: cfg.Booking},
		Approval:      &ApprovalService{core: c, slots: slots},
		Consultations: &ConsultationService{core: c},
		Cancellation:  &CancellationService{core: c},
		Records:       &MedicalRecordService{core: c},
		Presenter:     NewPresenter(d.Directory, d.Logger),
	}, nil
}

type core struct {
	appts   repository.AppointmentRepository
	records repository.MedicalRecordRepository
	dir     Directory
	log     zerolog.Logger
	now     func() time.Time
	scope   string
}

type fields = map[string]interface{}

func (c *core) appointment(ctx context.Context, id string) (*models.Appointment, error) {
	if id == "" {
		return nil, validationf("Appointment ID is required")
	}
	a, err := c.appts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Appointment not found")
	}
	if err != nil {
		return nil, storageError(c.log, "appointments.get", err, fields{"appointmentId": id})
	}
	return a, nil
}

// storeAppointment loads an appointment for a staff actor of its store.
func (c *core) storeAppointment(ctx context.Context, actor ActorContext, id string) (*models.Appointment, error) {
	if err := actor.requireStore(); err != nil {
		return nil, err
	}
	a, err := c.appointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.ownsStore(a.StoreID); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *core) pet(ctx context.Context, id string) (*models.Pet, error) {
	pet, err := c.dir.GetPet(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Pet not found")
	}
	if err != nil {
		return nil, storageError(c.log, "directory.pet", err, fields{"petId": id})
	}
	return pet, nil
}

// transition persists a status change that was decided against from.
func (c *core) transition(ctx context.Context, op string, a *models.Appointment, from models.AppointmentStatus) error {
	if err := c.appts.Transition(ctx, a, from, ClaimKeys(a, c.scope)); err != nil {
		return writeError(c.log, op, err, fields{"appointmentId": a.ID, "from": from, "to": a.Status})
	}
	c.log.Info().Str("op", op).Str("appointmentId", a.ID).
		Str("from", string(from)).Str("to", string(a.Status)).Msg("appointment transition")
	return nil
}

// NormalizePage applies the list defaults: page 1, 20 items, at most 100.
func NormalizePage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	return page, limit
}

// pageBounds turns 1-based page and limit query values into limit and offset.
func pageBounds(page, limit int) (int, int) {
	page, limit = NormalizePage(page, limit)
	return limit, (page - 1) * limit
}
