package checkout

import (
	"gorm.io/gorm"

	"github.com/codeabdala/fanbroj-cli/internal/database"
)

const methodPreferenceKey = "checkout_method"

// MethodStore persists the user's last-used payment method so it can
// be pre-selected the next time the overlay opens.
type MethodStore interface {
	// LastMethod returns the remembered method. ok is false when
	// nothing valid is stored.
	LastMethod() (Method, bool)
	SetLastMethod(Method) error
}

type dbMethodStore struct {
	db *gorm.DB
}

// NewMethodStore returns a MethodStore backed by the local database.
func NewMethodStore(db *gorm.DB) MethodStore {
	return &dbMethodStore{db: db}
}

func (s *dbMethodStore) LastMethod() (Method, bool) {
	raw, ok := database.GetPreference(s.db, methodPreferenceKey)
	if !ok {
		return "", false
	}
	// Malformed stored values are ignored.
	return ParseMethod(raw)
}

func (s *dbMethodStore) SetLastMethod(m Method) error {
	return database.SetPreference(s.db, methodPreferenceKey, string(m))
}
