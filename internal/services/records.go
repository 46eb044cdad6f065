package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

// MaxAttachmentSize bounds uploaded attachment files.
const MaxAttachmentSize = 10 << 20

// RecordPatch edits the clinical and billing part of a medical record.
// Nil fields are left unchanged. Pet, owner, store and creator never change.
type RecordPatch struct {
	Diagnosis        *string                     `json:"diagnosis"`
	Treatment        *string                     `json:"treatment"`
	Notes            *string                     `json:"notes"`
	Medications      *[]models.Medication        `json:"medications"`
	Procedures       *[]models.Procedure         `json:"procedures"`
	Vaccinations     *[]models.Vaccination       `json:"vaccinations"`
	Tests            *[]models.LabTest           `json:"tests"`
	Prescriptions    *[]models.Prescription      `json:"prescriptions"`
	FollowUpRequired *bool                       `json:"followUpRequired"`
	FollowUpDate     *time.Time                  `json:"followUpDate"`
	FollowUpNotes    *string                     `json:"followUpNotes"`
	TotalCost        *float64                    `json:"totalCost"`
	AmountPaid       *float64                    `json:"amountPaid"`
	PaymentStatus    *models.RecordPaymentStatus `json:"paymentStatus"`
}

// MedicalRecordService serves medical records to clinics and owners.
type MedicalRecordService struct {
	*core
}

// ListByPet lists the active records a clinic holds for a pet, newest first.
func (s *MedicalRecordService) ListByPet(ctx context.Context, actor ActorContext, petID string) ([]models.MedicalRecord, error) {
	if err := actor.requireStore(); err != nil {
		return nil, err
	}
	if petID == "" {
		return nil, validationf("Pet ID is required")
	}
	list, err := s.records.Find(ctx, repository.RecordFilter{PetIDs: []string{petID}, StoreID: actor.StoreID})
	if err != nil {
		return nil, storageError(s.log, "records.list", err, fields{"petId": petID, "storeId": actor.StoreID})
	}
	return list, nil
}

// ListForOwnerPet lists the active records of one of the actor's pets across clinics.
func (s *MedicalRecordService) ListForOwnerPet(ctx context.Context, actor ActorContext, petID string) ([]models.MedicalRecord, error) {
	pet, err := s.pet(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet.OwnerID != actor.UserID {
		return nil, accessDenied("Access denied - Pet does not belong to user")
	}
	list, err := s.records.Find(ctx, repository.RecordFilter{PetIDs: []string{petID}, OwnerID: actor.UserID})
	if err != nil {
		return nil, storageError(s.log, "records.list_owner", err, fields{"petId": petID})
	}
	return list, nil
}

// Get returns a record of the actor's clinic, archived or not.
func (s *MedicalRecordService) Get(ctx context.Context, actor ActorContext, id string) (*models.MedicalRecord, error) {
	if err := actor.requireStore(); err != nil {
		return nil, err
	}
	rec, err := s.records.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Medical record not found")
	}
	if err != nil {
		return nil, storageError(s.log, "records.get", err, fields{"recordId": id})
	}
	if rec.StoreID != actor.StoreID {
		return nil, accessDenied("Access denied - Medical record does not belong to your clinic")
	}
	return rec, nil
}

// Update edits a live record.
func (s *MedicalRecordService) Update(ctx context.Context, actor ActorContext, id string, p RecordPatch) (*models.MedicalRecord, error) {
	rec, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if rec.Archived() {
		return nil, conflict("Deleted medical records cannot be edited")
	}

	if p.Diagnosis != nil {
		d := strings.TrimSpace(*p.Diagnosis)
		if d == "" {
			return nil, validationf("Diagnosis is required")
		}
		rec.Diagnosis = d
	}
	if p.Treatment != nil {
		rec.Treatment = strings.TrimSpace(*p.Treatment)
	}
	if p.Notes != nil {
		rec.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Medications != nil {
		rec.Medications = nonNil(*p.Medications)
	}
	if p.Procedures != nil {
		rec.Procedures = nonNil(*p.Procedures)
	}
	if p.Vaccinations != nil {
		// due dates default from the original visit
		norm := NormalizeClinicalPayload(ClinicalPayload{Vaccinations: *p.Vaccinations}, rec.VisitDate)
		rec.Vaccinations = norm.Vaccinations
	}
	if p.Tests != nil {
		rec.Tests = nonNil(*p.Tests)
	}
	if p.Prescriptions != nil {
		rec.Prescriptions = nonNil(*p.Prescriptions)
	}
	if p.FollowUpRequired != nil {
		rec.FollowUpRequired = *p.FollowUpRequired
	}
	if p.FollowUpDate != nil {
		rec.FollowUpDate = p.FollowUpDate
		rec.FollowUpRequired = true
	}
	if p.FollowUpNotes != nil {
		rec.FollowUpNotes = strings.TrimSpace(*p.FollowUpNotes)
	}
	if p.TotalCost != nil {
		rec.TotalCost = *p.TotalCost
	}
	if p.AmountPaid != nil {
		rec.AmountPaid = *p.AmountPaid
	}
	if rec.TotalCost < 0 || rec.AmountPaid < 0 {
		return nil, validationf("Costs cannot be negative")
	}
	if p.PaymentStatus != nil {
		if !p.PaymentStatus.Valid() {
			return nil, validationf("Invalid payment status %q", *p.PaymentStatus)
		}
		rec.PaymentStatus = *p.PaymentStatus
	}

	rec.UpdatedBy = actor.UserID
	return rec, s.save(ctx, "records.update", rec)
}

// SoftDelete archives a record. It disappears from lists but stays readable by id.
func (s *MedicalRecordService) SoftDelete(ctx context.Context, actor ActorContext, id string) (*models.MedicalRecord, error) {
	rec, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if rec.Archived() {
		return rec, nil
	}
	rec.Archive(s.now())
	rec.UpdatedBy = actor.UserID
	return rec, s.save(ctx, "records.delete", rec)
}

// Restore brings an archived record back.
func (s *MedicalRecordService) Restore(ctx context.Context, actor ActorContext, id string) (*models.MedicalRecord, error) {
	rec, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rec.Archived() {
		return rec, nil
	}
	rec.Restore()
	rec.UpdatedBy = actor.UserID
	return rec, s.save(ctx, "records.restore", rec)
}

func (s *MedicalRecordService) save(ctx context.Context, op string, rec *models.MedicalRecord) error {
	err := s.records.Update(ctx, rec)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Medical record not found")
	}
	if err != nil {
		return storageError(s.log, op, err, fields{"recordId": rec.ID})
	}
	return nil
}

// AddAttachment stores a file against a record of the actor's clinic.
func (s *MedicalRecordService) AddAttachment(ctx context.Context, actor ActorContext, recordID, fileName, fileType string, data []byte) (*models.MedicalRecordAttachment, error) {
	rec, err := s.Get(ctx, actor, recordID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, validationf("File is empty")
	}
	if len(data) > MaxAttachmentSize {
		return nil, validationf("File exceeds the %d MB limit", MaxAttachmentSize>>20)
	}
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	att := &models.MedicalRecordAttachment{
		MedicalRecordID: rec.ID,
		FileName:        fileName,
		FileType:        fileType,
		Size:            len(data),
		UploadedBy:      actor.UserID,
		FileData:        data,
	}
	if err := s.records.AddAttachment(ctx, att); err != nil {
		return nil, storageError(s.log, "records.attach", err, fields{"recordId": rec.ID})
	}
	return att, nil
}

// GetAttachment returns an attachment with its file body.
func (s *MedicalRecordService) GetAttachment(ctx context.Context, actor ActorContext, attachmentID string) (*models.MedicalRecordAttachment, error) {
	if err := actor.requireStore(); err != nil {
		return nil, err
	}
	att, err := s.records.GetAttachment(ctx, attachmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Attachment not found")
	}
	if err != nil {
		return nil, storageError(s.log, "records.attachment", err, fields{"attachmentId": attachmentID})
	}
	if _, err := s.Get(ctx, actor, att.MedicalRecordID); err != nil {
		return nil, err
	}
	return att, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
