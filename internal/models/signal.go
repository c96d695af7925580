package models

import (
	"time"

	"gorm.io/gorm"
)

// Signal is one recognised system state as it entered the engine
type Signal struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OccurrenceID  string         `gorm:"not null;uniqueIndex" json:"occurrence_id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	Kind          string         `gorm:"not null;index" json:"kind"`
	AppName       string         `gorm:"not null;default:''" json:"app_name"`
	WindowTitle   string         `gorm:"not null;default:''" json:"window_title"`
	DisplayServer string         `gorm:"not null;default:''" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Activity is an ended periodic activity
type Activity struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	StartedAt   time.Time `gorm:"not null;index" json:"started_at"`
	EndedAt     time.Time `gorm:"not null" json:"ended_at"`
	AppName     string    `gorm:"not null;index" json:"app_name"`
	WindowTitle string    `gorm:"not null;default:''" json:"window_title"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Break is an ended break; RevokedAt is set once the user voids it
type Break struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt     time.Time  `gorm:"not null" json:"ended_at"`
	Description string     `gorm:"not null" json:"description"`
	RevokedAt   *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// AppSummary is the aggregated activity time of one application
type AppSummary struct {
	AppName       string        `json:"app_name"`
	TotalDuration time.Duration `json:"total_duration"`
	Count         int           `json:"count"`
	Percentage    float64       `json:"percentage,omitempty"`
}
