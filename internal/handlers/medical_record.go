package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/services"
	"petcare-vet-server/internal/utils"
)

// MedicalRecordHandler handles medical record related requests.
type MedicalRecordHandler struct {
	Records Records
	Views   ReadModels
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(svc *services.Services) *MedicalRecordHandler {
	return &MedicalRecordHandler{Records: svc.Records, Views: svc.Presenter}
}

// GetMedicalRecordsForPet lists the clinic's records of the pet in the petId query parameter.
func (h *MedicalRecordHandler) GetMedicalRecordsForPet(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.Records.ListByPet(c.Request.Context(), actor, c.Query("petId"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medical records retrieved successfully", h.Views.Records(c.Request.Context(), list))
}

// GetMyPetMedicalRecords lists the records of one of the owner's pets.
func (h *MedicalRecordHandler) GetMyPetMedicalRecords(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.Records.ListForOwnerPet(c.Request.Context(), actor, c.Param("petId"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medical records retrieved successfully", h.Views.Records(c.Request.Context(), list))
}

// GetMedicalRecordByID returns a record, archived ones included.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	rec, err := h.Records.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medical record retrieved successfully", h.Views.Record(c.Request.Context(), rec))
}

// UpdateMedicalRecord edits the clinical and billing fields of a record.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var patch services.RecordPatch
	if !utils.BindAndValidate(c, &patch) {
		return
	}
	rec, err := h.Records.Update(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medical record updated successfully", h.Views.Record(c.Request.Context(), rec))
}

// DeleteMedicalRecord soft-deletes a record.
func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	rec, err := h.Records.SoftDelete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medical record deleted successfully", h.Views.Record(c.Request.Context(), rec))
}

// RestoreMedicalRecord brings back a soft-deleted record.
func (h *MedicalRecordHandler) RestoreMedicalRecord(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	rec, err := h.Records.Restore(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medical record restored successfully", h.Views.Record(c.Request.Context(), rec))
}

// UploadMedicalRecordAttachment stores the multipart "file" field against a record.
func (h *MedicalRecordHandler) UploadMedicalRecordAttachment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}
	defer file.Close()

	// read one byte past the limit so oversize files are rejected by the service
	fileData, err := io.ReadAll(io.LimitReader(file, services.MaxAttachmentSize+1))
	if err != nil {
		utils.BadRequest(c, "Error reading file content: "+err.Error())
		return
	}

	att, err := h.Records.AddAttachment(c.Request.Context(), actor, c.Param("id"),
		header.Filename, header.Header.Get("Content-Type"), fileData)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}

	// Return a slimmed down version of the attachment, without the FileData
	utils.Created(c, "File uploaded and linked to medical record successfully", struct {
		ID              string    `json:"id"`
		MedicalRecordID string    `json:"medicalRecordId"`
		FileName        string    `json:"fileName"`
		FileType        string    `json:"fileType"`
		Size            int       `json:"size"`
		CreatedAt       time.Time `json:"createdAt"`
	}{
		ID:              att.ID,
		MedicalRecordID: att.MedicalRecordID,
		FileName:        att.FileName,
		FileType:        att.FileType,
		Size:            att.Size,
		CreatedAt:       att.CreatedAt,
	})
}

// GetMedicalRecordAttachment serves the file of an attachment.
func (h *MedicalRecordHandler) GetMedicalRecordAttachment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	att, err := h.Records.GetAttachment(c.Request.Context(), actor, c.Param("attachmentId"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	c.Writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
	c.Data(http.StatusOK, att.FileType, att.FileData)
}
