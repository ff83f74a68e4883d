package database

import (
	"time"

	"gorm.io/gorm"
)

// Preference is a key-value store for client-local settings
// (device id, last-used payment method, ...).
type Preference struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Preference) TableName() string {
	return "preferences"
}

// Entitlement caches the most recent subscription record fetched from
// the backend, so the UI can show premium status before the first
// refresh completes.
type Entitlement struct {
	ID        uint      `gorm:"primaryKey"`
	DeviceID  string    `gorm:"not null;uniqueIndex"`
	Active    bool      `gorm:"not null;default:false"`
	Plan      string    `gorm:"default:''"`
	ExpiresAt time.Time `gorm:""`
	FetchedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Entitlement) TableName() string {
	return "entitlements"
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Preference{},
		&Entitlement{},
	)
}

// GetPreference returns the stored value for key, or ("", false) when absent.
func GetPreference(db *gorm.DB, key string) (string, bool) {
	var pref Preference
	if err := db.First(&pref, "key = ?", key).Error; err != nil {
		return "", false
	}
	return pref.Value, true
}

// SetPreference upserts the value for key.
func SetPreference(db *gorm.DB, key, value string) error {
	pref := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	return db.Save(&pref).Error
}
