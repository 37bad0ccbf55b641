package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBValueAndScan(t *testing.T) {
	in := NewJSONB(map[string]interface{}{"needs": []interface{}{"ambulance"}, "count": float64(2)})

	val, err := in.Value()
	require.NoError(t, err)

	var out JSONB
	require.NoError(t, out.Scan(val))
	assert.Equal(t, in.Data, out.Data)
}

func TestJSONBNil(t *testing.T) {
	var j JSONB
	val, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j.Data)

	out, err := json.Marshal(j)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestJSONBArray(t *testing.T) {
	var j JSONB
	require.NoError(t, json.Unmarshal([]byte(`["police","fire"]`), &j))

	arr, ok := j.Data.([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"police", "fire"}, arr)
}

func TestValidSeverity(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		assert.True(t, ValidSeverity(s), s)
	}
	assert.False(t, ValidSeverity("extreme"))
	assert.False(t, ValidSeverity(""))
	assert.False(t, ValidSeverity("HIGH"))
}

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RolePublic, RolePolice, RoleAdmin} {
		assert.True(t, ValidRole(r), r)
	}
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole(""))
}

func TestValidIncidentType(t *testing.T) {
	for _, it := range []IncidentType{IncidentCongestion, IncidentAccident, IncidentRoadBlockage, IncidentOther} {
		assert.True(t, ValidIncidentType(it), it)
	}
	assert.False(t, ValidIncidentType("pothole"))
}

func TestValidIncidentStatus(t *testing.T) {
	for _, s := range []IncidentStatus{IncidentReported, IncidentVerified, IncidentInProgress, IncidentResolved, IncidentDismissed} {
		assert.True(t, ValidIncidentStatus(s), s)
	}
	assert.False(t, ValidIncidentStatus("closed"))
}

func TestValidEmergencyStatus(t *testing.T) {
	for _, s := range []EmergencyStatus{EmergencyPending, EmergencyActive, EmergencyDispatched, EmergencyResolved, EmergencyCancelled} {
		assert.True(t, ValidEmergencyStatus(s), s)
	}
	assert.False(t, ValidEmergencyStatus("done"))
}

func TestValidDeploymentStatus(t *testing.T) {
	for _, s := range []DeploymentStatus{DeploymentStandby, DeploymentEnRoute, DeploymentOnScene, DeploymentComplete} {
		assert.True(t, ValidDeploymentStatus(s), s)
	}
	assert.False(t, ValidDeploymentStatus("returning"))
}

func TestUserPasswordHashNeverSerialized(t *testing.T) {
	u := User{Email: "a@b.c", PasswordHash: "$2a$10$secret"}
	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.NotContains(t, string(out), "passwordHash")
}
