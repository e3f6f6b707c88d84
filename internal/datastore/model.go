// Package datastore persists analysis results for later trend queries.
// The analysis core only appends here; nothing on the hot path reads back.
package datastore

import (
	"time"
)

// IndexGridRecord is one computed index grid's summary row. The full pixel
// grid stays in memory; persistence keeps the aggregates that trend
// queries need.
type IndexGridRecord struct {
	ID             uint      `gorm:"primaryKey"`
	FieldID        string    `gorm:"index:idx_index_field_time"`
	CapturedAt     time.Time `gorm:"index:idx_index_field_time"`
	IndexKind      string    `gorm:"index"`
	MeanValue      float64
	UndefinedCount int
	ClampedCount   int
	Confidence     float64
	CreatedAt      time.Time
}

// DetectionRecord is one detector result row.
type DetectionRecord struct {
	ID            uint      `gorm:"primaryKey"`
	FieldID       string    `gorm:"index:idx_detection_field_time"`
	CapturedAt    time.Time `gorm:"index:idx_detection_field_time"`
	DetectorKind  string    `gorm:"index"`
	Detected      bool
	Confidence    float64
	Band          string
	LowConfidence bool
	Severity      string
	Urgency       string
	Confirmed     bool
	NutrientType  string
	AffectedZones string // comma separated zone IDs
	FailureReason string
	WeatherAware  bool
	CreatedAt     time.Time
}

// RecommendationRecord is one recommendation row.
type RecommendationRecord struct {
	ID              uint   `gorm:"primaryKey"`
	RecommendID     string `gorm:"uniqueIndex;size:36"`
	FieldID         string `gorm:"index"`
	Kind            string
	DetectorKind    string
	ZoneIDs         string // comma separated zone IDs
	Quantity        float64
	Unit            string
	Timing          time.Time
	WeatherSuitable bool
	WeatherAware    bool
	NutrientType    string
	Rationale       string `gorm:"type:text"`
	GeneratedAt     time.Time
	CreatedAt       time.Time
}

// AlertRecord is one issued alert row.
type AlertRecord struct {
	ID        uint   `gorm:"primaryKey"`
	AlertID   string `gorm:"uniqueIndex;size:36"`
	IssueType string `gorm:"index"`
	FieldID   string `gorm:"index"`
	ZoneID    string
	Severity  string
	Title     string
	Message   string `gorm:"type:text"`
	Actions   string `gorm:"type:text"` // newline separated action lines
	IssuedAt  time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}
