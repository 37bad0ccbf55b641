package models

import (
	"time"
)

// Notification model - durable per-user notification, mutated only by the
// read-flag toggle
type Notification struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"column:user_id;index;not null" json:"userId"`
	Title      string    `gorm:"column:title" json:"title"`
	Message    string    `gorm:"column:message" json:"message"`
	Type       string    `gorm:"column:type;index" json:"type"`
	IsRead     bool      `gorm:"column:is_read;default:false;index" json:"isRead"`
	IncidentID *int64    `gorm:"column:incident_id" json:"incidentId,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// AuditLog model - append-only record of admin/police actions
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   *uint     `gorm:"column:actor_id;index" json:"actorId,omitempty"`
	Actor     *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action    string    `gorm:"column:action;index" json:"action"`
	Entity    string    `gorm:"column:entity;index" json:"entity"`
	EntityID  *string   `gorm:"column:entity_id" json:"entityId,omitempty"`
	Detail    JSONB     `gorm:"type:jsonb;column:detail" json:"detail,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
