// Package model defines the database schema.
package model

import (
	"time"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"
)

// Workout is the canonical workout record. Every ingestion source is
// normalized into one of these before it is persisted.
type Workout struct {
	gorm.Model
	UserID         string `gorm:"index;not null"`
	Date           time.Time
	Type           string
	DistanceKm     float64
	DurationSec    float64
	PaceSecPerKm   float64
	ElevationGainM float64
	Calories       int
	AvgHeartRate   *int
	AvgPace        string
	Effort         int
	EffortDesc     string
	Source         string `gorm:"index"`
	// ProviderActivityID is the remote activity id for API-sourced imports
	// (Strava etc.) and forms the duplicate key together with UserID+Source.
	ProviderActivityID string `gorm:"index"`
	SyntheticTimes     bool
	SourceMetadata     pgtype.JSONB `gorm:"type:jsonb;default:'{}'"`
	Splits             []Split      `gorm:"constraint:OnDelete:CASCADE"`
}

// Split is a sub-segment of a workout. Splits are owned exclusively by their
// workout and are removed with it.
type Split struct {
	gorm.Model
	WorkoutID    uint `gorm:"index;not null"`
	SplitNumber  int
	Time         string
	Pace         string
	HeartRateBpm int
}

// Integration holds per-user OAuth token state for a third-party provider.
// UserID+Type is unique: one integration of each type per user.
type Integration struct {
	gorm.Model
	UserID       string `gorm:"uniqueIndex:idx_user_integration;not null"`
	Type         string `gorm:"uniqueIndex:idx_user_integration;not null"`
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IsActive     bool
	Metadata     pgtype.JSONB `gorm:"type:jsonb;default:'{}'"`
}
