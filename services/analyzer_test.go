package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake video bytes"), 0644))
	return path
}

func TestAnalyzerDisabled(t *testing.T) {
	a := NewAnalyzer("", "")
	assert.False(t, a.Enabled())

	_, err := a.QuickAnalyze(context.Background(), "/nonexistent", 0, 0)
	assert.Error(t, err)

	var nilAnalyzer *Analyzer
	assert.False(t, nilAnalyzer.Enabled())
}

func TestQuickAnalyze(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "-1.95", r.FormValue("lat"))
		assert.Equal(t, "30.06", r.FormValue("lng"))

		file, header, err := r.FormFile("video")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.mp4", header.Filename)

		json.NewEncoder(w).Encode(AnalysisResult{
			IncidentDetected: true,
			IncidentType:     "accident",
			Confidence:       0.91,
			VehicleCount:     4,
			ModelVersion:     "v2.1",
		})
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL, "secret")
	res, err := a.QuickAnalyze(context.Background(), writeTempClip(t), -1.95, 30.06)

	require.NoError(t, err)
	assert.Equal(t, "/v1/analyze/quick", gotPath)
	assert.True(t, res.IncidentDetected)
	assert.Equal(t, "accident", res.IncidentType)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
	assert.Equal(t, 4, res.VehicleCount)
}

func TestFullAnalyzeHitsFullEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(AnalysisResult{IncidentDetected: false})
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL, "")
	res, err := a.FullAnalyze(context.Background(), writeTempClip(t), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, "/v1/analyze", gotPath)
	assert.False(t, res.IncidentDetected)
}

func TestAnalyzeNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL, "")
	_, err := a.QuickAnalyze(context.Background(), writeTempClip(t), 0, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAnalyzeMissingClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server must not be reached when the clip is missing")
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL, "")
	_, err := a.QuickAnalyze(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"), 0, 0)
	assert.Error(t, err)
}
