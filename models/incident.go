package models

import (
	"time"
)

// IncidentType enum
type IncidentType string

const (
	IncidentCongestion   IncidentType = "congestion"
	IncidentAccident     IncidentType = "accident"
	IncidentRoadBlockage IncidentType = "road_blockage"
	IncidentOther        IncidentType = "other"
)

// ValidIncidentType reports whether t is a known incident type
func ValidIncidentType(t IncidentType) bool {
	switch t {
	case IncidentCongestion, IncidentAccident, IncidentRoadBlockage, IncidentOther:
		return true
	}
	return false
}

// IncidentStatus enum. Transition legality is deliberately not enforced
// beyond membership in this set.
type IncidentStatus string

const (
	IncidentReported   IncidentStatus = "reported"
	IncidentVerified   IncidentStatus = "verified"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
	IncidentDismissed  IncidentStatus = "dismissed"
)

// ValidIncidentStatus reports whether s is a known incident status
func ValidIncidentStatus(s IncidentStatus) bool {
	switch s {
	case IncidentReported, IncidentVerified, IncidentInProgress, IncidentResolved, IncidentDismissed:
		return true
	}
	return false
}

// Incident model - a reported traffic event
type Incident struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Type        IncidentType   `gorm:"column:type;index" json:"type"`
	Severity    Severity       `gorm:"column:severity;index" json:"severity"`
	Status      IncidentStatus `gorm:"column:status;default:reported;index" json:"status"`
	Lat         float64        `gorm:"column:lat" json:"lat"`
	Lng         float64        `gorm:"column:lng" json:"lng"`
	Address     *string        `gorm:"column:address" json:"address,omitempty"`
	Description *string        `gorm:"column:description" json:"description,omitempty"`
	VideoPath   *string        `gorm:"column:video_path" json:"videoPath,omitempty"`

	// Nullable - anonymous reports are allowed
	ReporterID *uint `gorm:"column:reporter_id;index" json:"reporterId,omitempty"`
	Reporter   *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`

	AssigneeID *uint `gorm:"column:assignee_id;index" json:"assigneeId,omitempty"`
	Assignee   *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	AutoCaptured bool `gorm:"column:auto_captured;default:false;index" json:"autoCaptured"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Updates   []IncidentUpdate   `gorm:"foreignKey:IncidentID" json:"updates,omitempty"`
	Analytics *IncidentAnalytics `gorm:"foreignKey:IncidentID" json:"analytics,omitempty"`
}

func (Incident) TableName() string {
	return "incidents"
}

// IncidentUpdate model - append-only status history, one row per transition
type IncidentUpdate struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	IncidentID int64          `gorm:"column:incident_id;index;not null" json:"incidentId"`
	ActorID    *uint          `gorm:"column:actor_id" json:"actorId,omitempty"`
	Actor      *User          `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Status     IncidentStatus `gorm:"column:status" json:"status"`
	Comment    *string        `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (IncidentUpdate) TableName() string {
	return "incident_updates"
}

// IncidentAnalytics model - at most one derived row per incident, written
// once after external AI analysis completes. Absence means not yet analyzed.
type IncidentAnalytics struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	IncidentID   int64        `gorm:"column:incident_id;uniqueIndex;not null" json:"incidentId"`
	Confidence   float64      `gorm:"column:confidence" json:"confidence"`
	VehicleCount int          `gorm:"column:vehicle_count" json:"vehicleCount"`
	DetectedType IncidentType `gorm:"column:detected_type" json:"detectedType"`
	ModelVersion *string      `gorm:"column:model_version" json:"modelVersion,omitempty"`
	CreatedAt    time.Time    `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (IncidentAnalytics) TableName() string {
	return "incident_analytics"
}
