package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WeatherRecord is a user-owned forecast snapshot for a location and date range.
// WeatherData and LocationData are opaque JSON blobs written whole by the record pipeline.
type WeatherRecord struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	UserID       uuid.UUID      `json:"user_id" gorm:"type:char(36);not null;index"`
	Location     string         `json:"location" gorm:"size:100;not null"`
	StartDate    Date           `json:"start_date" gorm:"not null"`
	EndDate      Date           `json:"end_date" gorm:"not null"`
	WeatherData  datatypes.JSON `json:"weather_data"`
	LocationData datatypes.JSON `json:"location_data"`
	CreatedAt    time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName returns the database table name for the WeatherRecord model.
func (WeatherRecord) TableName() string {
	return "weather_records"
}

// BeforeCreate sets UUID before creating the record.
func (r *WeatherRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SampleCount returns the number of forecast samples in the stored payload.
// A payload that cannot be decoded counts as empty.
func (r *WeatherRecord) SampleCount() int {
	if len(r.WeatherData) == 0 {
		return 0
	}
	var payload struct {
		Samples []json.RawMessage `json:"forecast"`
	}
	if err := json.Unmarshal(r.WeatherData, &payload); err != nil {
		return 0
	}
	return len(payload.Samples)
}
