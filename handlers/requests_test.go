package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSONBody(body string, out interface{}) error {
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return binding.JSON.Bind(req, out)
}

func TestReportIncidentBindingAcceptsZeroCoordinates(t *testing.T) {
	var req reportIncidentRequest
	err := bindJSONBody(`{"type":"accident","severity":"low","lat":0,"lng":0}`, &req)
	require.NoError(t, err)
	require.NotNil(t, req.Lat)
	require.NotNil(t, req.Lng)
	assert.Zero(t, *req.Lat)
	assert.Zero(t, *req.Lng)
}

func TestReportIncidentBindingRejectsMissingCoordinates(t *testing.T) {
	var req reportIncidentRequest
	err := bindJSONBody(`{"type":"accident","severity":"low","lng":30.06}`, &req)
	assert.Error(t, err)
}

func TestReportEmergencyBindingAcceptsZeroCoordinates(t *testing.T) {
	var req reportEmergencyRequest
	err := bindJSONBody(`{"type":"fire","severity":"high","locationName":"Null Island","lat":0,"lng":0}`, &req)
	require.NoError(t, err)
	require.NotNil(t, req.Lat)
	assert.Zero(t, *req.Lat)
}

func TestTrafficUpdateBindingAcceptsZeroCongestion(t *testing.T) {
	var req trafficUpdateRequest
	err := bindJSONBody(`{"lat":-1.95,"lng":30.06,"congestionLevel":0}`, &req)
	require.NoError(t, err)
	require.NotNil(t, req.CongestionLevel)
	assert.Zero(t, *req.CongestionLevel)
}

func TestTrafficUpdateBindingRejectsMissingCongestion(t *testing.T) {
	var req trafficUpdateRequest
	err := bindJSONBody(`{"lat":-1.95,"lng":30.06}`, &req)
	assert.Error(t, err)
}

func TestTrafficUpdateBindingRejectsOutOfRangeCongestion(t *testing.T) {
	var req trafficUpdateRequest
	err := bindJSONBody(`{"lat":-1.95,"lng":30.06,"congestionLevel":101}`, &req)
	assert.Error(t, err)
}

func TestCreateDeploymentBindingAcceptsZeroCoordinates(t *testing.T) {
	var req createDeploymentRequest
	err := bindJSONBody(`{"unitName":"Unit 7","lat":0,"lng":0}`, &req)
	require.NoError(t, err)
	require.NotNil(t, req.Lat)
	assert.Zero(t, *req.Lat)
}
