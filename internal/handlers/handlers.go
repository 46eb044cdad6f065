package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/middleware"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/services"
	"petcare-vet-server/internal/utils"
)

// Booker books and lists appointments.
type Booker interface {
	Book(ctx context.Context, actor services.ActorContext, req services.BookingRequest) (*models.Appointment, error)
	CreateForStore(ctx context.Context, actor services.ActorContext, req services.StaffBookingRequest) (*models.Appointment, error)
	ListForOwner(ctx context.Context, actor services.ActorContext, status string) ([]models.Appointment, error)
	GetForOwner(ctx context.Context, actor services.ActorContext, id string) (*models.Appointment, error)
	ListForStore(ctx context.Context, actor services.ActorContext, q services.StoreQuery) ([]models.Appointment, int64, error)
	GetForStore(ctx context.Context, actor services.ActorContext, id string) (*models.Appointment, error)
}

// Approver triages applications and edits appointments.
type Approver interface {
	Accept(ctx context.Context, actor services.ActorContext, id string, o services.AcceptOverrides) (*models.Appointment, error)
	Reject(ctx context.Context, actor services.ActorContext, id, reason string) (*models.Appointment, error)
	Update(ctx context.Context, actor services.ActorContext, id string, p services.AppointmentPatch) (*models.Appointment, error)
	ListPending(ctx context.Context, actor services.ActorContext, bookingType string, page, limit int) ([]models.Appointment, int64, error)
}

// Canceller cancels appointments.
type Canceller interface {
	Cancel(ctx context.Context, actor services.ActorContext, id, reason string) (*models.Appointment, error)
}

// SlotFinder lists free time slots.
type SlotFinder interface {
	ListAvailableSlots(ctx context.Context, storeID, date string) ([]string, error)
}

// Consultations runs consultations.
type Consultations interface {
	Start(ctx context.Context, actor services.ActorContext, id string) (*services.StartResult, error)
	Complete(ctx context.Context, actor services.ActorContext, id string, p services.ClinicalPayload) (*services.CompleteResult, error)
	CompleteForPet(ctx context.Context, actor services.ActorContext, id, petID string, p services.ClinicalPayload) (*services.PetCompleteResult, error)
	Details(ctx context.Context, actor services.ActorContext, id string) (*services.ConsultationDetails, error)
}

// Records serves medical records.
type Records interface {
	ListByPet(ctx context.Context, actor services.ActorContext, petID string) ([]models.MedicalRecord, error)
	ListForOwnerPet(ctx context.Context, actor services.ActorContext, petID string) ([]models.MedicalRecord, error)
	Get(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error)
	Update(ctx context.Context, actor services.ActorContext, id string, p services.RecordPatch) (*models.MedicalRecord, error)
	SoftDelete(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error)
	Restore(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error)
	AddAttachment(ctx context.Context, actor services.ActorContext, recordID, fileName, fileType string, data []byte) (*models.MedicalRecordAttachment, error)
	GetAttachment(ctx context.Context, actor services.ActorContext, attachmentID string) (*models.MedicalRecordAttachment, error)
}

// ReadModels resolves references for responses.
type ReadModels interface {
	Appointment(ctx context.Context, a *models.Appointment) services.AppointmentView
	Appointments(ctx context.Context, list []models.Appointment) []services.AppointmentView
	Record(ctx context.Context, r *models.MedicalRecord) services.RecordView
	Records(ctx context.Context, list []models.MedicalRecord) []services.RecordView
}

// ListData is the payload of paginated list responses.
type ListData struct {
	Items      interface{}      `json:"items"`
	Pagination utils.Pagination `json:"pagination"`
}

func currentActor(c *gin.Context) (services.ActorContext, bool) {
	a, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return a, ok
}

// page reads the page and limit query parameters.
func page(c *gin.Context) (int, int) {
	p, _ := strconv.Atoi(c.Query("page"))
	l, _ := strconv.Atoi(c.Query("limit"))
	return services.NormalizePage(p, l)
}
