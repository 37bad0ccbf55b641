package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/trafficguard/backend/models"
	"gorm.io/gorm"
)

// NotificationInput carries the caller-supplied fields of a notification
type NotificationInput struct {
	Title      string
	Message    string
	Type       string
	IncidentID *int64
}

// NotificationManager is the single choke point for creating durable
// notifications and fanning them out live through the hub.
type NotificationManager struct {
	db  *gorm.DB
	hub *Hub
}

// NewNotificationManager creates a notification manager
func NewNotificationManager(db *gorm.DB, hub *Hub) *NotificationManager {
	return &NotificationManager{db: db, hub: hub}
}

// CreateNotification inserts one row then emits it to the owner's user room.
// The insert and the emit are not transactional with each other: an emit
// failure after a successful insert is swallowed, not retried.
func (m *NotificationManager) CreateNotification(userID uint, in NotificationInput) (*models.Notification, error) {
	n := models.Notification{
		UserID:     userID,
		Title:      in.Title,
		Message:    in.Message,
		Type:       in.Type,
		IncidentID: in.IncidentID,
	}
	if err := m.db.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	m.hub.EmitNotificationToUser(userID, &n)
	return &n, nil
}

// roleBroadcast is the synthetic, non-persisted payload sent to a role room
// after the per-user rows have been created
type roleBroadcast struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	IncidentID *int64    `json:"incidentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreateNotificationForRole creates one notification per active user holding
// the role, then performs one extra role-room broadcast with a synthetic id.
// A connected client that is both in the role room and its own user room
// receives the notification twice; the redundancy is accepted.
func (m *NotificationManager) CreateNotificationForRole(role models.Role, in NotificationInput) ([]models.Notification, error) {
	var users []models.User
	if err := m.db.Where("role = ? AND is_active = ?", role, true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s users: %w", role, err)
	}

	created := make([]models.Notification, 0, len(users))
	for _, u := range users {
		n, err := m.CreateNotification(u.ID, in)
		if err != nil {
			log.Printf("⚠️ [NOTIFY] Failed to notify user %d: %v", u.ID, err)
			continue
		}
		created = append(created, *n)
	}

	m.hub.EmitNotificationToRole(role, roleBroadcast{
		ID:         uuid.NewString(),
		Role:       string(role),
		Title:      in.Title,
		Message:    in.Message,
		Type:       in.Type,
		IncidentID: in.IncidentID,
		CreatedAt:  time.Now(),
	})

	return created, nil
}

// NotifyPoliceAndAdmin fans a notification out to both responder roles
func (m *NotificationManager) NotifyPoliceAndAdmin(in NotificationInput) ([]models.Notification, error) {
	police, err := m.CreateNotificationForRole(models.RolePolice, in)
	if err != nil {
		return nil, err
	}
	admins, err := m.CreateNotificationForRole(models.RoleAdmin, in)
	if err != nil {
		return police, err
	}
	return append(police, admins...), nil
}

// MarkAsRead flips the read flag. When userID is non-zero the update is
// scoped to rows owned by that user.
func (m *NotificationManager) MarkAsRead(id int64, userID uint) error {
	q := m.db.Model(&models.Notification{}).Where("id = ?", id)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllAsRead flips the read flag on every unread row owned by the user
func (m *NotificationManager) MarkAllAsRead(userID uint) error {
	if err := m.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the unread count, or 0 on any persistence error.
// It never raises to the caller.
func (m *NotificationManager) GetUnreadCount(userID uint) int64 {
	var count int64
	if err := m.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		log.Printf("⚠️ [NOTIFY] Unread count query failed for user %d: %v", userID, err)
		return 0
	}
	return count
}
