// Package services provides business logic services
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/trafficguard/backend/models"
)

// Realtime event names seen by connected clients
const (
	EventIncidentNew      = "incident:new"
	EventIncidentUpdate   = "incident:update"
	EventIncidentAlert    = "incident:alert"
	EventEmergencyNew     = "emergency:new"
	EventEmergencyUpdate  = "emergency:update"
	EventNotificationNew  = "notification:new"
	EventAnalysisComplete = "analysis:complete"
)

// realtimeSubject is the NATS subject the hub fans out from. Controllers
// publish wire events here; the hub's subscription routes them to rooms.
const realtimeSubject = "realtime.events"

// wireEvent is the envelope published on the NATS backplane
type wireEvent struct {
	Event    string          `json:"event"`
	Everyone bool            `json:"everyone"`
	Rooms    []string        `json:"rooms,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// Backplane is the publish/subscribe fabric the hub fans events through.
// Satisfied by *nats.Conn and by the embedded server wrapper, which also
// counts traffic for the admin metrics surface.
type Backplane interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Hub maintains the set of connected clients and their room memberships and
// re-broadcasts domain events. Pure side channel: delivery is at-most-once,
// fire-and-forget, and failures never reach the originating HTTP request.
type Hub struct {
	backplane Backplane

	clients   map[*Client]bool
	clientsMu sync.RWMutex

	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client

	sub *nats.Subscription
}

// NewHub creates a new realtime hub
func NewHub(backplane Backplane) *Hub {
	return &Hub{
		backplane:  backplane,
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Register adds a client to the hub with an implicit everyone membership
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Run starts the hub's main loop and its backplane subscription
func (h *Hub) Run() {
	if h.backplane != nil {
		sub, err := h.backplane.Subscribe(realtimeSubject, func(msg *nats.Msg) {
			h.route(msg.Data)
		})
		if err != nil {
			log.Printf("⚠️ [HUB] Failed to subscribe to backplane: %v", err)
		} else {
			h.sub = sub
			log.Println("📡 Realtime hub started")
		}
	}

	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			client.connectedAt = time.Now()
			log.Printf("📡 Client connected: %s", client.remoteAddr)

		case client := <-h.unregister:
			h.removeClient(client)
			log.Printf("📡 Client disconnected: %s", client.remoteAddr)
		}
	}
}

// removeClient tears down a client. Room memberships go first, then the send
// channel is closed under the clients lock: route() holds one of the two read
// locks for the full duration of its sends, so once both write locks have
// been taken and released here no delivery can reach the closed channel.
func (h *Hub) removeClient(client *Client) {
	client.roomsMu.Lock()
	rooms := make([]string, 0, len(client.rooms))
	for room := range client.rooms {
		rooms = append(rooms, room)
	}
	client.rooms = make(map[string]bool)
	client.roomsMu.Unlock()

	for _, room := range rooms {
		h.leaveRoom(client, room)
	}

	h.clientsMu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.clientsMu.Unlock()
}

// GridKey buckets a coordinate into a ~1km cell by rounding each axis to
// 2 decimal places. (-1.95, 30.06) -> "loc:-195_3006". Halfway values round
// toward positive infinity on both axes so connected dashboards and the
// server agree on cell boundaries.
func GridKey(lat, lng float64) string {
	return fmt.Sprintf("loc:%d_%d", gridCell(lat), gridCell(lng))
}

func gridCell(v float64) int {
	return int(math.Floor(v*100 + 0.5))
}

// RoleRoom returns the room name for a role
func RoleRoom(role models.Role) string {
	return "role:" + string(role)
}

// UserRoom returns the room name for targeted per-user delivery
func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// JoinRole adds the client to its role room and, when authenticated, its
// user room. Invalid roles are silently ignored.
func (h *Hub) JoinRole(client *Client, role models.Role, userID uint) {
	if !models.ValidRole(role) {
		return
	}
	h.joinRoom(client, RoleRoom(role))
	if userID != 0 {
		h.joinRoom(client, UserRoom(userID))
	}
}

// JoinLocation adds the client to the grid-cell room for the coordinate
func (h *Hub) JoinLocation(client *Client, lat, lng float64) {
	h.joinRoom(client, GridKey(lat, lng))
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.roomsMu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
	h.roomsMu.Unlock()

	client.roomsMu.Lock()
	client.rooms[room] = true
	client.roomsMu.Unlock()
}

// leaveRoom removes a client from a room's membership set
func (h *Hub) leaveRoom(client *Client, room string) {
	h.roomsMu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.roomsMu.Unlock()
}

// route delivers a wire event received from the backplane to local clients
func (h *Hub) route(raw []byte) {
	var ev wireEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Printf("⚠️ [HUB] Invalid wire event: %v", err)
		return
	}

	out, err := json.Marshal(map[string]interface{}{
		"event": ev.Event,
		"data":  json.RawMessage(ev.Data),
	})
	if err != nil {
		return
	}

	if ev.Everyone {
		h.clientsMu.RLock()
		for client := range h.clients {
			client.trySend(out)
		}
		h.clientsMu.RUnlock()
		return
	}

	// Dedupe across rooms so a client in several targeted rooms gets one copy
	seen := make(map[*Client]bool)
	h.roomsMu.RLock()
	for _, room := range ev.Rooms {
		for client := range h.rooms[room] {
			if seen[client] {
				continue
			}
			seen[client] = true
			client.trySend(out)
		}
	}
	h.roomsMu.RUnlock()
}

// publish sends a wire event to the backplane. Any failure is absorbed.
func (h *Hub) publish(event string, everyone bool, rooms []string, payload interface{}) {
	if h == nil || h.backplane == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ [HUB] Failed to marshal %s payload: %v", event, err)
		return
	}
	raw, err := json.Marshal(wireEvent{
		Event:    event,
		Everyone: everyone,
		Rooms:    rooms,
		Data:     data,
	})
	if err != nil {
		return
	}
	if err := h.backplane.Publish(realtimeSubject, raw); err != nil {
		log.Printf("⚠️ [HUB] Failed to publish %s: %v", event, err)
	}
}

// IncidentPayload is the client-safe projection of an incident
type IncidentPayload struct {
	ID           int64                 `json:"id"`
	Type         models.IncidentType   `json:"type"`
	Severity     models.Severity       `json:"severity"`
	Status       models.IncidentStatus `json:"status"`
	Lat          float64               `json:"lat"`
	Lng          float64               `json:"lng"`
	Address      *string               `json:"address,omitempty"`
	AutoCaptured bool                  `json:"autoCaptured"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// ProjectIncident narrows an incident to its client-safe fields
func ProjectIncident(inc *models.Incident) IncidentPayload {
	return IncidentPayload{
		ID:           inc.ID,
		Type:         inc.Type,
		Severity:     inc.Severity,
		Status:       inc.Status,
		Lat:          inc.Lat,
		Lng:          inc.Lng,
		Address:      inc.Address,
		AutoCaptured: inc.AutoCaptured,
		CreatedAt:    inc.CreatedAt,
	}
}

// EmergencyPayload is the client-safe projection of an emergency
type EmergencyPayload struct {
	ID           int64                  `json:"id"`
	Type         string                 `json:"type"`
	Severity     models.Severity        `json:"severity"`
	Status       models.EmergencyStatus `json:"status"`
	LocationName string                 `json:"locationName"`
	Lat          float64                `json:"lat"`
	Lng          float64                `json:"lng"`
	Casualties   int                    `json:"casualties"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// ProjectEmergency narrows an emergency to its client-safe fields
func ProjectEmergency(e *models.Emergency) EmergencyPayload {
	return EmergencyPayload{
		ID:           e.ID,
		Type:         e.Type,
		Severity:     e.Severity,
		Status:       e.Status,
		LocationName: e.LocationName,
		Lat:          e.Lat,
		Lng:          e.Lng,
		Casualties:   e.Casualties,
		CreatedAt:    e.CreatedAt,
	}
}

// EmitIncidentNew broadcasts a new incident to everyone. Critical and high
// severities additionally raise incident:alert in the police and admin role
// rooms, and nowhere else.
func (h *Hub) EmitIncidentNew(inc *models.Incident) {
	if h == nil {
		return
	}
	payload := ProjectIncident(inc)
	h.publish(EventIncidentNew, true, nil, payload)
	if inc.Severity == models.SeverityCritical || inc.Severity == models.SeverityHigh {
		h.publish(EventIncidentAlert, false, []string{
			RoleRoom(models.RolePolice),
			RoleRoom(models.RoleAdmin),
		}, payload)
	}
}

// EmitIncidentUpdate broadcasts an incident status change to everyone
func (h *Hub) EmitIncidentUpdate(inc *models.Incident) {
	if h == nil {
		return
	}
	h.publish(EventIncidentUpdate, true, nil, ProjectIncident(inc))
}

// EmitEmergencyNew broadcasts a new emergency to everyone
func (h *Hub) EmitEmergencyNew(e *models.Emergency) {
	if h == nil {
		return
	}
	h.publish(EventEmergencyNew, true, nil, ProjectEmergency(e))
}

// EmitEmergencyUpdate broadcasts an emergency status change to everyone
func (h *Hub) EmitEmergencyUpdate(e *models.Emergency) {
	if h == nil {
		return
	}
	h.publish(EventEmergencyUpdate, true, nil, ProjectEmergency(e))
}

// EmitNotificationToUser delivers a persisted notification to its owner
func (h *Hub) EmitNotificationToUser(userID uint, n *models.Notification) {
	if h == nil {
		return
	}
	h.publish(EventNotificationNew, false, []string{UserRoom(userID)}, n)
}

// EmitNotificationToRole delivers a notification payload to a role room
func (h *Hub) EmitNotificationToRole(role models.Role, payload interface{}) {
	if h == nil || !models.ValidRole(role) {
		return
	}
	h.publish(EventNotificationNew, false, []string{RoleRoom(role)}, payload)
}

// EmitNotificationBroadcast delivers a notification payload to everyone
func (h *Hub) EmitNotificationBroadcast(payload interface{}) {
	if h == nil {
		return
	}
	h.publish(EventNotificationNew, true, nil, payload)
}

// EmitAnalysisComplete tells an uploader their clip analysis finished
func (h *Hub) EmitAnalysisComplete(userID uint, payload interface{}) {
	if h == nil {
		return
	}
	h.publish(EventAnalysisComplete, false, []string{UserRoom(userID)}, payload)
}

// HubStats holds hub statistics
type HubStats struct {
	Clients int      `json:"clients"`
	Rooms   int      `json:"rooms"`
	Active  []string `json:"activeRooms"`
}

// Stats returns hub statistics
func (h *Hub) Stats() HubStats {
	if h == nil {
		return HubStats{}
	}
	h.clientsMu.RLock()
	clientCount := len(h.clients)
	h.clientsMu.RUnlock()

	h.roomsMu.RLock()
	rooms := make([]string, 0, len(h.rooms))
	for key := range h.rooms {
		rooms = append(rooms, key)
	}
	h.roomsMu.RUnlock()

	return HubStats{
		Clients: clientCount,
		Rooms:   len(rooms),
		Active:  rooms,
	}
}
