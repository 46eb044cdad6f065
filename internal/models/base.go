package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Archivable is the soft-delete capability shared by appointments and medical records.
// Archived rows stay in storage and remain readable by id.
type Archivable struct {
	IsActive  bool       `gorm:"not null;default:true;index" json:"isActive"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Activate marks a fresh row as live.
func (a *Archivable) Activate() {
	a.IsActive = true
	a.DeletedAt = nil
}

// Archive soft-deletes the row.
func (a *Archivable) Archive(now time.Time) {
	a.IsActive = false
	a.DeletedAt = &now
}

// Restore undoes Archive.
func (a *Archivable) Restore() {
	a.Activate()
}

// Archived reports whether the row has been soft-deleted.
func (a Archivable) Archived() bool {
	return !a.IsActive
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
	Debug  bool
}

// InitDB initializes database connection
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "postgres":
		dialector = postgres.Open(config.DSN)
	case "mysql", "":
		dialector = mysql.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	logLevel := logger.Warn
	if config.Debug {
		logLevel = logger.Info
	}

	// TranslateError maps driver unique violations to gorm.ErrDuplicatedKey,
	// which the claim table relies on.
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
}

// AppointmentSequence names the counter behind appointment numbers.
const AppointmentSequence = "appointment"

// Migrate creates or updates every table owned by this service.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Store{},
		&User{},
		&Pet{},
		&Service{},
		&Sequence{},
		&Appointment{},
		&AppointmentPet{},
		&AppointmentClaim{},
		&MedicalRecord{},
		&MedicalRecordAttachment{},
	)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Sequence{Name: AppointmentSequence, Value: 0}).Error
}
