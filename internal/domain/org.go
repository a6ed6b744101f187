package domain

import (
	"fmt"
	"time"
)

// Organization represents a tenant in the system. Namespace is the storage
// collection bound to this organization; it is derived deterministically from
// the ID and never shared.
type Organization struct {
	ID        string
	Namespace string
	CreatedAt time.Time
}

// ValidateOrganization validates an Organization instance
func ValidateOrganization(o *Organization) error {
	if o == nil {
		return fmt.Errorf("organization cannot be nil")
	}
	if o.ID == "" {
		return fmt.Errorf("organization ID is required")
	}
	if o.Namespace == "" {
		return fmt.Errorf("organization Namespace is required")
	}
	return nil
}
