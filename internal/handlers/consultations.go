package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/services"
	"petcare-vet-server/internal/utils"
)

// ConsultationHandler handles the in-progress phase of appointments.
type ConsultationHandler struct {
	Consultations Consultations
	Views         ReadModels
}

// NewConsultationHandler creates a new ConsultationHandler.
func NewConsultationHandler(svc *services.Services) *ConsultationHandler {
	return &ConsultationHandler{Consultations: svc.Consultations, Views: svc.Presenter}
}

// StartData is the response of a started consultation.
type StartData struct {
	Appointment     services.AppointmentView         `json:"appointment"`
	PreviousRecords []services.RecordView            `json:"previousRecords"`
	RecordsByPet    map[string][]services.RecordView `json:"recordsByPet"`
	TotalVisits     int                              `json:"totalVisits"`
	LastVisit       *time.Time                       `json:"lastVisit"`
	PetsCount       int                              `json:"petsCount"`
}

// CompleteData is the response of a completed consultation or pet.
type CompleteData struct {
	Appointment      services.AppointmentView `json:"appointment"`
	MedicalRecord    services.RecordView      `json:"medicalRecord"`
	AllPetsCompleted *bool                    `json:"allPetsCompleted,omitempty"`
	RemainingPets    *int                     `json:"remainingPets,omitempty"`
}

// StartConsultation moves a confirmed or scheduled appointment to in progress.
func (h *ConsultationHandler) StartConsultation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	res, err := h.Consultations.Start(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}

	ctx := c.Request.Context()
	data := StartData{
		Appointment:     h.Views.Appointment(ctx, res.Appointment),
		PreviousRecords: h.Views.Records(ctx, res.PreviousRecords),
		RecordsByPet:    make(map[string][]services.RecordView, len(res.RecordsByPet)),
		TotalVisits:     res.TotalVisits,
		LastVisit:       res.LastVisit,
		PetsCount:       res.PetsCount,
	}
	for petID, list := range res.RecordsByPet {
		data.RecordsByPet[petID] = h.Views.Records(ctx, list)
	}
	utils.Success(c, "Consultation started successfully", data)
}

// CompleteConsultation closes a single-pet consultation.
func (h *ConsultationHandler) CompleteConsultation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var p services.ClinicalPayload
	if !utils.BindAndValidate(c, &p) {
		return
	}
	res, err := h.Consultations.Complete(c.Request.Context(), actor, c.Param("id"), p)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Consultation completed successfully", CompleteData{
		Appointment:   h.Views.Appointment(c.Request.Context(), res.Appointment),
		MedicalRecord: h.Views.Record(c.Request.Context(), res.MedicalRecord),
	})
}

// CompletePetConsultation closes one pet of a consultation.
func (h *ConsultationHandler) CompletePetConsultation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var p services.ClinicalPayload
	if !utils.BindAndValidate(c, &p) {
		return
	}
	res, err := h.Consultations.CompleteForPet(c.Request.Context(), actor, c.Param("id"), c.Param("petId"), p)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	msg := "Pet consultation completed successfully"
	if res.AllPetsCompleted {
		msg = "All pet consultations completed"
	}
	utils.Success(c, msg, CompleteData{
		Appointment:      h.Views.Appointment(c.Request.Context(), res.Appointment),
		MedicalRecord:    h.Views.Record(c.Request.Context(), res.MedicalRecord),
		AllPetsCompleted: &res.AllPetsCompleted,
		RemainingPets:    &res.RemainingPets,
	})
}

// GetConsultationDetails returns the appointment with the pet's history at this clinic.
func (h *ConsultationHandler) GetConsultationDetails(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	d, err := h.Consultations.Details(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Consultation details retrieved successfully", gin.H{
		"appointment":    h.Views.Appointment(c.Request.Context(), d.Appointment),
		"medicalHistory": h.Views.Records(c.Request.Context(), d.MedicalHistory),
		"stats":          d.Stats,
	})
}
