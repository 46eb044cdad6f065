package services

import "petcare-vet-server/internal/models"

// ActorContext identifies who performs an operation. It is built by the
// transport from verified credentials and passed to every service call.
type ActorContext struct {
	UserID  string
	StoreID string
	Role    models.Role
}

// IsStaff reports whether the actor works for a store.
func (a ActorContext) IsStaff() bool {
	return a.Role.IsStoreStaff()
}

// requireStore guards manager operations.
func (a ActorContext) requireStore() error {
	if !a.IsStaff() {
		return accessDenied("Only clinic staff can perform this operation")
	}
	if a.StoreID == "" {
		return validationf("Store ID is required")
	}
	return nil
}

func (a ActorContext) ownsStore(storeID string) error {
	if storeID != a.StoreID {
		return accessDenied("Access denied - Appointment does not belong to your clinic")
	}
	return nil
}
