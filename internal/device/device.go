// Package device provides the stable client identifier that the
// backend uses to associate checkout sessions and entitlements with
// this installation.
package device

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codeabdala/fanbroj-cli/internal/database"
)

const preferenceKey = "device_id"

// Identity is a read-only view of this installation's device id.
type Identity interface {
	ID() string
}

type identity struct {
	id string
}

func (i *identity) ID() string { return i.id }

// Load returns the persisted device id, generating and storing a new
// one on first run.
func Load(db *gorm.DB) (Identity, error) {
	if id, ok := database.GetPreference(db, preferenceKey); ok && id != "" {
		return &identity{id: id}, nil
	}

	id := uuid.NewString()
	if err := database.SetPreference(db, preferenceKey, id); err != nil {
		return nil, fmt.Errorf("failed to persist device id: %w", err)
	}
	return &identity{id: id}, nil
}

// Static returns a fixed identity. Used in tests.
func Static(id string) Identity {
	return &identity{id: id}
}
