package models

import (
	"time"

	"gorm.io/datatypes"
)

// RecordPaymentStatus represents the billing state of a medical record
type RecordPaymentStatus string

const (
	RecordPaymentPending  RecordPaymentStatus = "pending"
	RecordPaymentPaid     RecordPaymentStatus = "paid"
	RecordPaymentFailed   RecordPaymentStatus = "failed"
	RecordPaymentRefunded RecordPaymentStatus = "refunded"
)

// Valid reports whether p is a known record payment status.
func (p RecordPaymentStatus) Valid() bool {
	switch p {
	case RecordPaymentPending, RecordPaymentPaid, RecordPaymentFailed, RecordPaymentRefunded:
		return true
	}
	return false
}

// Medication given or dispensed during a visit.
type Medication struct {
	Name         string  `json:"name"`
	Dosage       string  `json:"dosage,omitempty"`
	Frequency    string  `json:"frequency,omitempty"`
	Duration     string  `json:"duration,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	Cost         float64 `json:"cost"`
}

// Procedure performed during a visit.
type Procedure struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Cost        float64 `json:"cost"`
}

// Vaccination administered during a visit.
type Vaccination struct {
	Name        string     `json:"name"`
	BatchNumber string     `json:"batchNumber,omitempty"`
	NextDueDate *time.Time `json:"nextDueDate,omitempty"`
	Cost        float64    `json:"cost"`
}

// LabTest ordered during a visit.
type LabTest struct {
	Name   string  `json:"name"`
	Result string  `json:"result,omitempty"`
	Notes  string  `json:"notes,omitempty"`
	Cost   float64 `json:"cost"`
}

// Prescription issued during a visit.
type Prescription struct {
	Medication   string `json:"medication"`
	Dosage       string `json:"dosage,omitempty"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"instructions,omitempty"`
}

// MedicalRecord represents one completed veterinary visit
type MedicalRecord struct {
	BaseModel
	Archivable
	PetID         string `gorm:"size:36;index;not null" json:"petId"`
	OwnerID       string `gorm:"size:36;index" json:"ownerId"`
	StoreID       string `gorm:"size:64;index;not null" json:"storeId"`
	StoreName     string `gorm:"size:255" json:"storeName,omitempty"`
	StaffID       string `gorm:"size:36" json:"staffId"`
	AppointmentID string `gorm:"size:36;index" json:"appointmentId,omitempty"`

	VisitDate time.Time `gorm:"index" json:"visitDate"`
	Diagnosis string    `gorm:"type:text;not null" json:"diagnosis"`
	Treatment string    `gorm:"type:text" json:"treatment"`
	Notes     string    `gorm:"type:text" json:"notes"`

	Medications   datatypes.JSONSlice[Medication]   `json:"medications"`
	Procedures    datatypes.JSONSlice[Procedure]    `json:"procedures"`
	Vaccinations  datatypes.JSONSlice[Vaccination]  `json:"vaccinations"`
	Tests         datatypes.JSONSlice[LabTest]      `json:"tests"`
	Prescriptions datatypes.JSONSlice[Prescription] `json:"prescriptions"`

	FollowUpRequired bool       `json:"followUpRequired"`
	FollowUpDate     *time.Time `json:"followUpDate,omitempty"`
	FollowUpNotes    string     `gorm:"type:text" json:"followUpNotes,omitempty"`

	TotalCost     float64             `json:"totalCost"`
	AmountPaid    float64             `json:"amountPaid"`
	PaymentStatus RecordPaymentStatus `gorm:"size:20;not null" json:"paymentStatus"`

	CreatedBy string `gorm:"size:36" json:"createdBy,omitempty"`
	UpdatedBy string `gorm:"size:36" json:"updatedBy,omitempty"`

	Attachments []MedicalRecordAttachment `gorm:"foreignKey:MedicalRecordID" json:"attachments,omitempty"`
}

// TableName for MedicalRecord.
func (MedicalRecord) TableName() string { return "vet_medical_records" }

// BalanceDue is the unpaid part of the bill, never negative.
func (r *MedicalRecord) BalanceDue() float64 {
	if r.AmountPaid >= r.TotalCost {
		return 0
	}
	return r.TotalCost - r.AmountPaid
}

// MedicalRecordAttachment represents a file attached to a medical record
type MedicalRecordAttachment struct {
	BaseModel
	MedicalRecordID string `json:"medicalRecordId" gorm:"not null;type:varchar(36);index"`
	FileName        string `json:"fileName" gorm:"not null"`
	FileType        string `json:"fileType" gorm:"not null"`
	Size            int    `json:"size"`
	UploadedBy      string `json:"uploadedBy" gorm:"size:36"`
	FileData        []byte `json:"-" gorm:"not null"`
}

// TableName for MedicalRecordAttachment.
func (MedicalRecordAttachment) TableName() string { return "vet_medical_record_attachments" }
