package handlers

import (
	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/utils"
)

// SlotHandler serves time slot availability.
type SlotHandler struct {
	Slots SlotFinder
}

// NewSlotHandler creates a new SlotHandler.
func NewSlotHandler(slots SlotFinder) *SlotHandler {
	return &SlotHandler{Slots: slots}
}

// SlotsData is the availability of one clinic day.
type SlotsData struct {
	StoreID        string   `json:"storeId"`
	Date           string   `json:"date"`
	AvailableSlots []string `json:"availableSlots"`
}

// GetAvailableSlots lists free slots of the clinic given by the storeId query parameter.
func (h *SlotHandler) GetAvailableSlots(c *gin.Context) {
	h.respond(c, c.Query("storeId"))
}

// GetStoreAvailableSlots lists free slots of the actor's own clinic.
func (h *SlotHandler) GetStoreAvailableSlots(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	h.respond(c, actor.StoreID)
}

func (h *SlotHandler) respond(c *gin.Context, storeID string) {
	date := c.Query("date")
	slots, err := h.Slots.ListAvailableSlots(c.Request.Context(), storeID, date)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Available slots retrieved successfully", SlotsData{StoreID: storeID, Date: date, AvailableSlots: slots})
}
