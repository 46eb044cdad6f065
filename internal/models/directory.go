package models

// The platform owns these tables; this service only reads them.

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleUser    Role = "user"
)

// IsStoreStaff reports whether the role acts on behalf of a store.
func (r Role) IsStoreStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleStaff
}

// User is an account holder (pet owner or store staff)
type User struct {
	BaseModel
	Name    string `gorm:"size:255" json:"name"`
	Email   string `gorm:"size:255;index" json:"email"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	StoreID string `gorm:"size:64;index" json:"storeId,omitempty"`
	Role    Role   `gorm:"size:20;default:'user'" json:"role"`
}

// Pet registered on the platform
type Pet struct {
	BaseModel
	OwnerID string `gorm:"size:36;index" json:"ownerId"`
	Name    string `gorm:"size:255" json:"name"`
	Species string `gorm:"size:100" json:"species"`
	Breed   string `gorm:"size:100" json:"breed,omitempty"`
}

// Service is an entry of a clinic's service catalog
type Service struct {
	BaseModel
	StoreID  string  `gorm:"size:64;index" json:"storeId"`
	Name     string  `gorm:"size:255" json:"name"`
	Category string  `gorm:"size:100" json:"category,omitempty"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"` // minutes
	IsActive bool    `gorm:"default:true" json:"isActive"`
}

// TableName for Service.
func (Service) TableName() string { return "vet_services" }

// Store is a veterinary clinic tenant
type Store struct {
	BaseModel
	StoreID string `gorm:"size:64;uniqueIndex" json:"storeId"` // tenant id carried by staff tokens
	Name    string `gorm:"size:255" json:"name"`
}

// TableName for Store.
func (Store) TableName() string { return "vet_stores" }
