package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trafficguard/backend/models"
)

func newTestClient() *Client {
	return &Client{
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}
}

func drain(t *testing.T, c *Client) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestGridKey(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
		want string
	}{
		{"kigali center", -1.95, 30.06, "loc:-195_3006"},
		{"rounds to same cell", -1.9512, 30.0589, "loc:-195_3006"},
		{"zero", 0, 0, "loc:0_0"},
		{"negative rounding", -1.955, 30.0649, "loc:-195_3006"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GridKey(tt.lat, tt.lng))
		})
	}
}

func TestGridKeyNearbyPointsShareCell(t *testing.T) {
	// Points within the same 0.01 degree bucket must land in one room
	assert.Equal(t, GridKey(-1.951, 30.061), GridKey(-1.949, 30.059))
	// A point a full cell away must not
	assert.NotEqual(t, GridKey(-1.95, 30.06), GridKey(-1.96, 30.06))
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "role:police", RoleRoom(models.RolePolice))
	assert.Equal(t, "user:42", UserRoom(42))
}

func TestJoinRoleInvalidRoleIgnored(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()

	h.JoinRole(c, models.Role("superuser"), 7)

	assert.Empty(t, c.rooms)
	assert.Empty(t, h.rooms)
}

func TestJoinRoleAddsUserRoomWhenAuthenticated(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()

	h.JoinRole(c, models.RolePolice, 7)

	assert.True(t, c.rooms["role:police"])
	assert.True(t, c.rooms["user:7"])

	anon := newTestClient()
	h.JoinRole(anon, models.RolePublic, 0)
	assert.True(t, anon.rooms["role:public"])
	assert.False(t, anon.rooms["user:0"])
}

func TestRouteEveryone(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient()
	b := newTestClient()
	h.clients[a] = true
	h.clients[b] = true

	raw, err := json.Marshal(wireEvent{
		Event:    EventIncidentNew,
		Everyone: true,
		Data:     json.RawMessage(`{"id":1}`),
	})
	require.NoError(t, err)
	h.route(raw)

	for _, c := range []*Client{a, b} {
		msgs := drain(t, c)
		require.Len(t, msgs, 1)

		var got struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msgs[0], &got))
		assert.Equal(t, EventIncidentNew, got.Event)
		assert.JSONEq(t, `{"id":1}`, string(got.Data))
	}
}

func TestRouteRoomsDedupesAcrossRooms(t *testing.T) {
	h := NewHub(nil)

	officer := newTestClient()
	h.clients[officer] = true
	h.joinRoom(officer, RoleRoom(models.RolePolice))
	h.joinRoom(officer, RoleRoom(models.RoleAdmin))

	bystander := newTestClient()
	h.clients[bystander] = true
	h.joinRoom(bystander, GridKey(-1.95, 30.06))

	raw, err := json.Marshal(wireEvent{
		Event: EventIncidentAlert,
		Rooms: []string{RoleRoom(models.RolePolice), RoleRoom(models.RoleAdmin)},
		Data:  json.RawMessage(`{"id":9,"severity":"critical"}`),
	})
	require.NoError(t, err)
	h.route(raw)

	// A client in both targeted rooms still gets exactly one copy
	assert.Len(t, drain(t, officer), 1)
	// A client outside the targeted rooms gets nothing
	assert.Empty(t, drain(t, bystander))
}

func TestRouteInvalidPayloadDropped(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()
	h.clients[c] = true

	h.route([]byte("not json"))

	assert.Empty(t, drain(t, c))
}

func TestTrySendFullBufferDrops(t *testing.T) {
	c := &Client{send: make(chan []byte, 1), rooms: make(map[string]bool)}
	c.trySend([]byte("one"))
	c.trySend([]byte("two")) // must not block

	assert.Len(t, drain(t, c), 1)
}

func TestRemoveClientDropsRoomsBeforeClosingSend(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()
	h.clients[c] = true
	h.joinRoom(c, RoleRoom(models.RolePolice))
	h.joinRoom(c, "loc:-195_3006")

	h.removeClient(c)

	assert.Empty(t, h.rooms)
	assert.Empty(t, c.rooms)
	_, open := <-c.send
	assert.False(t, open)

	// A delivery arriving after teardown must not reach the closed channel
	raw, err := json.Marshal(wireEvent{
		Event: EventIncidentAlert,
		Rooms: []string{RoleRoom(models.RolePolice)},
		Data:  json.RawMessage(`{"id":1}`),
	})
	require.NoError(t, err)
	assert.NotPanics(t, func() { h.route(raw) })
}

func TestRemoveClientDuringDeliveryDoesNotPanic(t *testing.T) {
	h := NewHub(nil)

	targeted, err := json.Marshal(wireEvent{
		Event: EventIncidentAlert,
		Rooms: []string{RoleRoom(models.RolePolice)},
		Data:  json.RawMessage(`{"id":1}`),
	})
	require.NoError(t, err)
	broadcast, err := json.Marshal(wireEvent{
		Event:    EventIncidentNew,
		Everyone: true,
		Data:     json.RawMessage(`{"id":2}`),
	})
	require.NoError(t, err)

	// Disconnect repeatedly while a backplane goroutine is mid-delivery;
	// a send on the closed channel would panic the test binary
	for i := 0; i < 200; i++ {
		c := newTestClient()
		h.clients[c] = true
		h.joinRoom(c, RoleRoom(models.RolePolice))

		done := make(chan struct{})
		go func() {
			for j := 0; j < 20; j++ {
				h.route(targeted)
				h.route(broadcast)
			}
			close(done)
		}()

		h.removeClient(c)
		<-done
	}
}

func TestLeaveRoomRemovesEmptyRooms(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()
	h.joinRoom(c, "role:police")
	require.Len(t, h.rooms, 1)

	h.leaveRoom(c, "role:police")
	assert.Empty(t, h.rooms)
}

func TestNilHubEmitsAreSafe(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() {
		h.EmitIncidentNew(&models.Incident{Severity: models.SeverityCritical})
		h.EmitIncidentUpdate(&models.Incident{})
		h.EmitEmergencyNew(&models.Emergency{})
		h.EmitEmergencyUpdate(&models.Emergency{})
		h.EmitNotificationToUser(1, &models.Notification{})
		h.EmitNotificationToRole(models.RolePolice, nil)
		h.EmitNotificationBroadcast(nil)
		h.EmitAnalysisComplete(1, nil)
		_ = h.Stats()
	})
}

func TestHubWithoutBackplanePublishIsNoop(t *testing.T) {
	h := NewHub(nil)
	assert.NotPanics(t, func() {
		h.EmitIncidentNew(&models.Incident{ID: 1, Severity: models.SeverityHigh})
	})
}

type recordedPublish struct {
	subject string
	data    []byte
}

type fakeBackplane struct {
	published []recordedPublish
}

func (f *fakeBackplane) Publish(subject string, data []byte) error {
	f.published = append(f.published, recordedPublish{subject: subject, data: data})
	return nil
}

func (f *fakeBackplane) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return nil, nil
}

func TestEmitPublishesThroughBackplane(t *testing.T) {
	bp := &fakeBackplane{}
	h := NewHub(bp)

	h.EmitIncidentNew(&models.Incident{ID: 4, Severity: models.SeverityCritical})

	// Critical severity publishes the broadcast plus the role-room alert
	require.Len(t, bp.published, 2)

	var first, second wireEvent
	require.NoError(t, json.Unmarshal(bp.published[0].data, &first))
	require.NoError(t, json.Unmarshal(bp.published[1].data, &second))

	assert.Equal(t, realtimeSubject, bp.published[0].subject)
	assert.Equal(t, EventIncidentNew, first.Event)
	assert.True(t, first.Everyone)

	assert.Equal(t, realtimeSubject, bp.published[1].subject)
	assert.Equal(t, EventIncidentAlert, second.Event)
	assert.False(t, second.Everyone)
	assert.ElementsMatch(t, []string{"role:police", "role:admin"}, second.Rooms)
}

func TestProjectIncidentOmitsReporter(t *testing.T) {
	reporterID := uint(12)
	email := "someone@example.com"
	inc := &models.Incident{
		ID:         3,
		Type:       models.IncidentAccident,
		Severity:   models.SeverityHigh,
		Status:     models.IncidentReported,
		Lat:        -1.95,
		Lng:        30.06,
		ReporterID: &reporterID,
		Reporter:   &models.User{ID: reporterID, Email: email},
		CreatedAt:  time.Now(),
	}

	out, err := json.Marshal(ProjectIncident(inc))
	require.NoError(t, err)
	assert.NotContains(t, string(out), email)
	assert.NotContains(t, string(out), "reporterId")
	assert.Contains(t, string(out), `"type":"accident"`)
}

func TestProjectEmergencyOmitsContact(t *testing.T) {
	phone := "+250780000000"
	e := &models.Emergency{
		ID:           5,
		Type:         "accident",
		Severity:     models.SeverityCritical,
		Status:       models.EmergencyPending,
		LocationName: "KN 3 Ave",
		ContactPhone: &phone,
	}

	out, err := json.Marshal(ProjectEmergency(e))
	require.NoError(t, err)
	assert.NotContains(t, string(out), phone)
	assert.Contains(t, string(out), `"locationName":"KN 3 Ave"`)
}

func TestStats(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()
	h.clients[c] = true
	h.joinRoom(c, "role:admin")
	h.joinRoom(c, "loc:-195_3006")

	stats := h.Stats()
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, 2, stats.Rooms)
	assert.ElementsMatch(t, []string{"role:admin", "loc:-195_3006"}, stats.Active)
}
