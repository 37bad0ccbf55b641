package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trafficguard/backend/models"
)

func TestShouldEscalate(t *testing.T) {
	assert.False(t, ShouldEscalate(models.SeverityLow))
	assert.False(t, ShouldEscalate(models.SeverityMedium))
	assert.True(t, ShouldEscalate(models.SeverityHigh))
	assert.True(t, ShouldEscalate(models.SeverityCritical))
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewSMSService(SMSConfig{}).Enabled())
	assert.False(t, NewSMSService(SMSConfig{GatewayURL: "http://gw"}).Enabled())
	assert.False(t, NewSMSService(SMSConfig{DispatchNumbers: []string{"+1"}}).Enabled())
	assert.True(t, NewSMSService(SMSConfig{
		GatewayURL:      "http://gw",
		DispatchNumbers: []string{"+1"},
	}).Enabled())

	var nilSvc *SMSService
	assert.False(t, nilSvc.Enabled())
}

func testEmergency() *models.Emergency {
	desc := "Multi-vehicle collision blocking both lanes"
	name := "Jean"
	phone := "+250780000000"
	return &models.Emergency{
		ID:               7,
		Type:             "accident",
		Severity:         models.SeverityCritical,
		LocationName:     "KN 3 Ave roundabout",
		Lat:              -1.95,
		Lng:              30.06,
		Description:      &desc,
		Casualties:       2,
		VehiclesInvolved: 3,
		ServicesNeeded:   models.NewJSONB([]interface{}{"ambulance", "fire"}),
		ContactName:      &name,
		ContactPhone:     &phone,
	}
}

func TestFormatEmergencyMessage(t *testing.T) {
	msg := FormatEmergencyMessage(testEmergency())

	assert.Contains(t, msg, "CRITICAL EMERGENCY: accident")
	assert.Contains(t, msg, "Location: KN 3 Ave roundabout")
	assert.Contains(t, msg, "https://maps.google.com/?q=-1.950000,30.060000")
	assert.Contains(t, msg, "Casualties: 2")
	assert.Contains(t, msg, "Vehicles: 3")
	assert.Contains(t, msg, "Needs: ambulance, fire")
	assert.Contains(t, msg, "Contact: Jean +250780000000")
}

func TestFormatEmergencyMessageTruncatesDescription(t *testing.T) {
	e := testEmergency()
	long := strings.Repeat("x", 500)
	e.Description = &long

	msg := FormatEmergencyMessage(e)

	assert.Contains(t, msg, strings.Repeat("x", maxDescriptionLength-3)+"...")
	assert.NotContains(t, msg, strings.Repeat("x", maxDescriptionLength))
}

func TestFormatEmergencyMessageBoundedLength(t *testing.T) {
	e := testEmergency()
	long := strings.Repeat("y", 1000)
	e.LocationName = long

	msg := FormatEmergencyMessage(e)
	assert.LessOrEqual(t, len(msg), maxSMSLength)
}

func TestFormatEmergencyMessageOmitsEmptyFields(t *testing.T) {
	e := &models.Emergency{
		Type:         "fire",
		Severity:     models.SeverityHigh,
		LocationName: "somewhere",
	}
	msg := FormatEmergencyMessage(e)

	assert.NotContains(t, msg, "Casualties")
	assert.NotContains(t, msg, "Vehicles")
	assert.NotContains(t, msg, "Needs")
	assert.NotContains(t, msg, "Contact")
}

func TestDispatchEmergencyAllSucceed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.Form.Get("to"))
		assert.Contains(t, r.Form.Get("message"), "EMERGENCY")
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "TrafficGuard", r.Form.Get("sender_id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewSMSService(SMSConfig{
		GatewayURL:      srv.URL,
		APIKey:          "key",
		SenderID:        "TrafficGuard",
		DispatchNumbers: []string{"+250780000001", "+250780000002"},
	})

	res := svc.DispatchEmergency(testEmergency())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDispatchEmergencyPartialFailureStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("to") == "+bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewSMSService(SMSConfig{
		GatewayURL:      srv.URL,
		DispatchNumbers: []string{"+250780000001", "+bad"},
	})

	res := svc.DispatchEmergency(testEmergency())

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		if r.Number == "+bad" {
			assert.False(t, r.Success)
			assert.Contains(t, r.Error, "502")
		} else {
			assert.True(t, r.Success)
		}
	}
}

func TestDispatchEmergencyAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewSMSService(SMSConfig{
		GatewayURL:      srv.URL,
		DispatchNumbers: []string{"+1", "+2"},
	})

	res := svc.DispatchEmergency(testEmergency())

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 2, res.Failed)
}

func TestDispatchEmergencyDisabledIsNoop(t *testing.T) {
	svc := NewSMSService(SMSConfig{})
	res := svc.DispatchEmergency(testEmergency())

	assert.False(t, res.Success)
	assert.Empty(t, res.Results)
}
