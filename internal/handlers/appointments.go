package handlers

import (
	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/services"
	"petcare-vet-server/internal/utils"
)

// AppointmentHandler handles appointment related requests for owners and clinics.
type AppointmentHandler struct {
	Booking  Booker
	Approval Approver
	Cancel   Canceller
	Views    ReadModels
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *services.Services) *AppointmentHandler {
	return &AppointmentHandler{
		Booking:  svc.Booking,
		Approval: svc.Approval,
		Cancel:   svc.Cancellation,
		Views:    svc.Presenter,
	}
}

// ReasonRequest carries an optional free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// CreateAppointment books a visit for the authenticated owner.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req services.BookingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	a, err := h.Booking.Book(c.Request.Context(), actor, req)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	msg := "Appointment booked successfully"
	if a.Status == models.StatusPendingApproval {
		msg = "Emergency application submitted, awaiting clinic approval"
	}
	utils.Created(c, msg, h.Views.Appointment(c.Request.Context(), a))
}

// GetMyAppointments lists the owner's appointments.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.Booking.ListForOwner(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", h.Views.Appointments(c.Request.Context(), list))
}

// GetMyAppointment returns one of the owner's appointments.
func (h *AppointmentHandler) GetMyAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	a, err := h.Booking.GetForOwner(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment retrieved successfully", h.Views.Appointment(c.Request.Context(), a))
}

// CancelAppointment cancels a scheduled or pending appointment.
// Owners cancel their own, staff those of their clinic.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if !utils.BindOptional(c, &req) {
		return
	}
	a, err := h.Cancel.Cancel(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", h.Views.Appointment(c.Request.Context(), a))
}

// CreateStoreAppointment books a visit on behalf of an owner at the actor's clinic.
func (h *AppointmentHandler) CreateStoreAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req services.StaffBookingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	a, err := h.Booking.CreateForStore(c.Request.Context(), actor, req)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Created(c, "Appointment created successfully", h.Views.Appointment(c.Request.Context(), a))
}

// GetStoreAppointments lists the clinic's appointments.
func (h *AppointmentHandler) GetStoreAppointments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	p, l := page(c)
	list, total, err := h.Booking.ListForStore(c.Request.Context(), actor, services.StoreQuery{
		Date:        c.Query("date"),
		Status:      c.Query("status"),
		PetID:       c.Query("petId"),
		BookingType: c.Query("bookingType"),
		Page:        p,
		Limit:       l,
	})
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", ListData{
		Items:      h.Views.Appointments(c.Request.Context(), list),
		Pagination: utils.NewPagination(p, l, total),
	})
}

// GetStoreAppointment returns an appointment of the clinic.
func (h *AppointmentHandler) GetStoreAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	a, err := h.Booking.GetForStore(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment retrieved successfully", h.Views.Appointment(c.Request.Context(), a))
}

// UpdateAppointment applies a staff edit.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var patch services.AppointmentPatch
	if !utils.BindAndValidate(c, &patch) {
		return
	}
	a, err := h.Approval.Update(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", h.Views.Appointment(c.Request.Context(), a))
}

// GetApplications lists emergency applications awaiting approval.
func (h *AppointmentHandler) GetApplications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	p, l := page(c)
	list, total, err := h.Approval.ListPending(c.Request.Context(), actor, c.Query("bookingType"), p, l)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Applications retrieved successfully", ListData{
		Items:      h.Views.Appointments(c.Request.Context(), list),
		Pagination: utils.NewPagination(p, l, total),
	})
}

// AcceptApplication confirms a pending application.
func (h *AppointmentHandler) AcceptApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var o services.AcceptOverrides
	if !utils.BindOptional(c, &o) {
		return
	}
	a, err := h.Approval.Accept(c.Request.Context(), actor, c.Param("id"), o)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Application accepted", h.Views.Appointment(c.Request.Context(), a))
}

// RejectApplication declines a pending application.
func (h *AppointmentHandler) RejectApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if !utils.BindOptional(c, &req) {
		return
	}
	a, err := h.Approval.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Application rejected", h.Views.Appointment(c.Request.Context(), a))
}
