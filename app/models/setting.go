package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings is the process-wide settings snapshot loaded from the settings
// table. It is refreshed through CurrentAppSettings on a TTL rather than read
// from the database on every request.
type AppSettings struct {
	SiteTitle           string `json:"site_title" validate:"required,min=1,max=255"`
	SiteDescription     string `json:"site_description" validate:"max=500"`
	MaintenanceMode     bool   `json:"maintenance_mode"`
	RegistrationEnabled bool   `json:"registration_enabled"`
}

const appSettingsTTL = 30 * time.Second

var (
	appSettings  *AppSettings
	settingsAsOf time.Time
	settingsMu   sync.RWMutex
)

// CurrentAppSettings returns the cached settings snapshot, reloading from the
// database once the TTL has elapsed. A failed reload keeps serving the last
// known snapshot.
func CurrentAppSettings(db *gorm.DB) *AppSettings {
	settingsMu.RLock()
	fresh := appSettings != nil && time.Since(settingsAsOf) < appSettingsTTL
	current := appSettings
	settingsMu.RUnlock()
	if fresh {
		return current
	}

	if err := LoadSettings(db); err != nil && current != nil {
		return current
	}

	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings loads settings from database into memory
func LoadSettings(db *gorm.DB) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	// Initialize with defaults
	loaded := &AppSettings{
		SiteTitle:           "AeThex",
		SiteDescription:     "Creator platform",
		MaintenanceMode:     false,
		RegistrationEnabled: true,
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		switch setting.Key {
		case "site_title":
			loaded.SiteTitle = setting.Value
		case "site_description":
			loaded.SiteDescription = setting.Value
		case "maintenance_mode":
			loaded.MaintenanceMode = setting.Value == "true"
		case "registration_enabled":
			loaded.RegistrationEnabled = setting.Value == "true"
		}
	}

	appSettings = loaded
	settingsAsOf = time.Now()
	return nil
}

// SaveSettings saves current settings to database and refreshes the snapshot.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	settingsMap := map[string]string{
		"site_title":           settings.SiteTitle,
		"site_description":     settings.SiteDescription,
		"maintenance_mode":     fmt.Sprintf("%t", settings.MaintenanceMode),
		"registration_enabled": fmt.Sprintf("%t", settings.RegistrationEnabled),
	}

	for key, value := range settingsMap {
		var setting Setting
		result := db.Where("setting_key = ?", key).First(&setting)

		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				setting = Setting{
					Key:   key,
					Value: value,
					Type:  getSettingType(key),
				}
				if err := db.Create(&setting).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
			} else {
				return fmt.Errorf("failed to query setting %s: %w", key, result.Error)
			}
		} else {
			setting.Value = value
			if err := db.Save(&setting).Error; err != nil {
				return fmt.Errorf("failed to update setting %s: %w", key, err)
			}
		}
	}

	settingsMu.Lock()
	snapshot := *settings
	appSettings = &snapshot
	settingsAsOf = time.Now()
	settingsMu.Unlock()
	return nil
}

// Validate validates the settings struct
func (s *AppSettings) Validate() error {
	v := validator.New()
	return v.Struct(s)
}

func getSettingType(key string) string {
	switch key {
	case "maintenance_mode", "registration_enabled":
		return "boolean"
	default:
		return "string"
	}
}
