package models

import (
	"time"
)

// EmergencyStatus enum. Same permissive transition policy as incidents.
type EmergencyStatus string

const (
	EmergencyPending    EmergencyStatus = "pending"
	EmergencyActive     EmergencyStatus = "active"
	EmergencyDispatched EmergencyStatus = "dispatched"
	EmergencyResolved   EmergencyStatus = "resolved"
	EmergencyCancelled  EmergencyStatus = "cancelled"
)

// ValidEmergencyStatus reports whether s is a known emergency status
func ValidEmergencyStatus(s EmergencyStatus) bool {
	switch s {
	case EmergencyPending, EmergencyActive, EmergencyDispatched, EmergencyResolved, EmergencyCancelled:
		return true
	}
	return false
}

// Emergency model - higher-urgency citizen report with casualty/contact
// fields and SMS escalation on high/critical severities
type Emergency struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type         string          `gorm:"column:type;index" json:"type"`
	Severity     Severity        `gorm:"column:severity;index" json:"severity"`
	Status       EmergencyStatus `gorm:"column:status;default:pending;index" json:"status"`
	LocationName string          `gorm:"column:location_name" json:"locationName"`
	Lat          float64         `gorm:"column:lat" json:"lat"`
	Lng          float64         `gorm:"column:lng" json:"lng"`
	Description  *string         `gorm:"column:description" json:"description,omitempty"`

	Casualties       int   `gorm:"column:casualties;default:0" json:"casualties"`
	VehiclesInvolved int   `gorm:"column:vehicles_involved;default:0" json:"vehiclesInvolved"`
	ServicesNeeded   JSONB `gorm:"type:jsonb;column:services_needed" json:"servicesNeeded,omitempty"`

	ContactName  *string `gorm:"column:contact_name" json:"contactName,omitempty"`
	ContactPhone *string `gorm:"column:contact_phone" json:"contactPhone,omitempty"`

	ReporterID *uint `gorm:"column:reporter_id;index" json:"reporterId,omitempty"`
	Reporter   *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`

	AssigneeID *uint `gorm:"column:assignee_id;index" json:"assigneeId,omitempty"`
	Assignee   *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	// Response-only enrichment when caller coordinates are supplied; not a column
	DistanceKm *float64 `gorm:"->;-:migration" json:"distanceKm,omitempty"`

	History []EmergencyStatusHistory `gorm:"foreignKey:EmergencyID" json:"history,omitempty"`
}

func (Emergency) TableName() string {
	return "emergencies"
}

// EmergencyStatusHistory model - append-only status history
type EmergencyStatusHistory struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EmergencyID int64           `gorm:"column:emergency_id;index;not null" json:"emergencyId"`
	ActorID     *uint           `gorm:"column:actor_id" json:"actorId,omitempty"`
	Actor       *User           `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Status      EmergencyStatus `gorm:"column:status" json:"status"`
	Comment     *string         `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (EmergencyStatusHistory) TableName() string {
	return "emergency_status_history"
}
