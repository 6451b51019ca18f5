package repository

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

type SettingsRepository interface {
	GetSettings(roomID int64) (*RoomSettings, error)
	InitSettings(roomID int64) error
	UpdateSettings(settings *RoomSettings) error
	GetActiveRooms() ([]int64, error)
	SetActive(roomID int64, active bool) error
}

type CachedSettingsRepository struct {
	db          *gorm.DB
	cache       sync.Map
	enableCache bool
}

type cachedSettings struct {
	settings  *RoomSettings
	expiresAt time.Time
}

const cacheTTL = 5 * time.Minute

func NewSettingsRepository(db *gorm.DB, enableCache bool) SettingsRepository {
	return &CachedSettingsRepository{
		db:          db,
		enableCache: enableCache,
	}
}

func defaultSettings(roomID int64) *RoomSettings {
	return &RoomSettings{
		RoomID:         roomID,
		LinkBanEnabled: true,
		CaptchaEnabled: false,
		Active:         true,
	}
}

func (r *CachedSettingsRepository) GetSettings(roomID int64) (*RoomSettings, error) {
	if r.enableCache {
		if val, ok := r.cache.Load(roomID); ok {
			entry := val.(*cachedSettings)
			if time.Now().Before(entry.expiresAt) {
				return entry.settings, nil
			}
			r.cache.Delete(roomID)
		}
	}
	var settings RoomSettings
	err := r.db.First(&settings, "room_id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if initErr := r.InitSettings(roomID); initErr != nil {
				return nil, fmt.Errorf("failed to init settings on miss: %w", initErr)
			}
			return defaultSettings(roomID), nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if r.enableCache {
		r.cache.Store(roomID, &cachedSettings{
			settings:  &settings,
			expiresAt: time.Now().Add(cacheTTL),
		})
	}
	return &settings, nil
}

func (r *CachedSettingsRepository) InitSettings(roomID int64) error {
	settings := defaultSettings(roomID)
	if err := r.db.FirstOrCreate(settings, RoomSettings{RoomID: roomID}).Error; err != nil {
		return fmt.Errorf("failed to init settings: %w", err)
	}
	return nil
}

func (r *CachedSettingsRepository) UpdateSettings(settings *RoomSettings) error {
	if err := r.db.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	if r.enableCache {
		r.cache.Store(settings.RoomID, &cachedSettings{
			settings:  settings,
			expiresAt: time.Now().Add(cacheTTL),
		})
	}
	return nil
}

func (r *CachedSettingsRepository) GetActiveRooms() ([]int64, error) {
	var rooms []int64
	err := r.db.Model(&RoomSettings{}).Where("active = ?", true).Pluck("room_id", &rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active rooms: %w", err)
	}
	return rooms, nil
}

func (r *CachedSettingsRepository) SetActive(roomID int64, active bool) error {
	settings, err := r.GetSettings(roomID)
	if err != nil {
		return err
	}
	settings.Active = active
	return r.UpdateSettings(settings)
}
