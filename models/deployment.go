package models

import (
	"time"
)

// DeploymentStatus enum - independent of the incident status machine
type DeploymentStatus string

const (
	DeploymentStandby  DeploymentStatus = "standby"
	DeploymentEnRoute  DeploymentStatus = "en_route"
	DeploymentOnScene  DeploymentStatus = "on_scene"
	DeploymentComplete DeploymentStatus = "complete"
)

// ValidDeploymentStatus reports whether s is a known deployment status
func ValidDeploymentStatus(s DeploymentStatus) bool {
	switch s {
	case DeploymentStandby, DeploymentEnRoute, DeploymentOnScene, DeploymentComplete:
		return true
	}
	return false
}

// Deployment model - a unit/officer assignment record
type Deployment struct {
	ID           int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitName     string           `gorm:"column:unit_name" json:"unitName"`
	LocationName *string          `gorm:"column:location_name" json:"locationName,omitempty"`
	Lat          float64          `gorm:"column:lat" json:"lat"`
	Lng          float64          `gorm:"column:lng" json:"lng"`
	Status       DeploymentStatus `gorm:"column:status;default:standby;index" json:"status"`

	IncidentID *int64    `gorm:"column:incident_id;index" json:"incidentId,omitempty"`
	Incident   *Incident `gorm:"foreignKey:IncidentID" json:"incident,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Officers []DeploymentOfficer `gorm:"foreignKey:DeploymentID" json:"officers,omitempty"`
}

func (Deployment) TableName() string {
	return "deployments"
}

// DeploymentOfficer model - officer links for a deployment, written in the
// same transaction as the deployment row
type DeploymentOfficer struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DeploymentID int64 `gorm:"column:deployment_id;index;uniqueIndex:idx_deployment_officer" json:"deploymentId"`
	OfficerID    uint  `gorm:"column:officer_id;index;uniqueIndex:idx_deployment_officer" json:"officerId"`
	Officer      *User `gorm:"foreignKey:OfficerID" json:"officer,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (DeploymentOfficer) TableName() string {
	return "deployment_officers"
}
