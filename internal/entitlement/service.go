// Package entitlement tracks whether this device currently holds an
// active premium subscription.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeabdala/fanbroj-cli/internal/api"
	"github.com/codeabdala/fanbroj-cli/internal/database"
)

// Status is the current entitlement view for the device.
type Status struct {
	Active    bool
	Plan      string
	ExpiresAt time.Time
	// Stale is true when Status comes from the local cache and no
	// backend refresh has succeeded yet this run.
	Stale bool
}

// Fetcher fetches the subscription record for a device.
// *api.Client satisfies this.
type Fetcher interface {
	Subscription(ctx context.Context, deviceID string) (*api.Subscription, error)
}

// Service caches the entitlement record for one device and refreshes
// it on demand (notably right after a successful checkout).
type Service struct {
	fetcher  Fetcher
	db       *gorm.DB
	deviceID string
	logger   *slog.Logger

	mu      sync.RWMutex
	current Status
}

// NewService builds a Service seeded from the local cache.
func NewService(fetcher Fetcher, db *gorm.DB, deviceID string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetcher:  fetcher,
		db:       db,
		deviceID: deviceID,
		logger:   logger,
	}
	s.loadCached()
	return s
}

// Current returns the most recently known entitlement status.
func (s *Service) Current() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh fetches the entitlement record from the backend and updates
// the local cache. Called on startup and whenever a checkout succeeds.
func (s *Service) Refresh(ctx context.Context) (Status, error) {
	sub, err := s.fetcher.Subscription(ctx, s.deviceID)
	if err != nil {
		return s.Current(), fmt.Errorf("entitlement refresh failed: %w", err)
	}

	status := Status{
		Active:    sub.Active,
		Plan:      sub.Plan,
		ExpiresAt: sub.ExpiresAt,
	}

	s.mu.Lock()
	s.current = status
	s.mu.Unlock()

	if s.db != nil {
		record := database.Entitlement{
			DeviceID:  s.deviceID,
			Active:    sub.Active,
			Plan:      sub.Plan,
			ExpiresAt: sub.ExpiresAt,
			FetchedAt: time.Now(),
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			UpdateAll: true,
		}).Create(&record).Error
		if err != nil {
			s.logger.Warn("failed to cache entitlement", "error", err)
		}
	}

	return status, nil
}

// loadCached seeds current from the local database so the UI has
// something to show before the first refresh lands.
func (s *Service) loadCached() {
	if s.db == nil {
		return
	}
	var record database.Entitlement
	if err := s.db.First(&record, "device_id = ?", s.deviceID).Error; err != nil {
		return
	}
	s.mu.Lock()
	s.current = Status{
		Active:    record.Active && record.ExpiresAt.After(time.Now()),
		Plan:      record.Plan,
		ExpiresAt: record.ExpiresAt,
		Stale:     true,
	}
	s.mu.Unlock()
}
