package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Quick triage bound for auto-capture clips
	quickAnalysisTimeout = 10 * time.Second
	// Full analysis bound for reporter-attached videos
	fullAnalysisTimeout = 60 * time.Second
)

// AnalysisResult is the AI service's verdict on a clip
type AnalysisResult struct {
	IncidentDetected bool    `json:"incident_detected"`
	IncidentType     string  `json:"incident_type"`
	Confidence       float64 `json:"confidence"`
	VehicleCount     int     `json:"vehicle_count"`
	ModelVersion     string  `json:"model_version"`
}

// Analyzer is a client for the external AI video-analysis service. The
// detection intelligence lives entirely on the other side of this HTTP call.
type Analyzer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAnalyzer creates an analyzer client. An empty base URL leaves analysis
// disabled; callers treat that the same as an analysis failure.
func NewAnalyzer(baseURL, apiKey string) *Analyzer {
	return &Analyzer{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// Enabled reports whether an analysis endpoint is configured
func (a *Analyzer) Enabled() bool {
	return a != nil && a.baseURL != ""
}

// QuickAnalyze runs the short-timeout triage used by the auto-capture path
func (a *Analyzer) QuickAnalyze(ctx context.Context, clipPath string, lat, lng float64) (*AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, quickAnalysisTimeout)
	defer cancel()
	return a.analyze(ctx, "/v1/analyze/quick", clipPath, lat, lng)
}

// FullAnalyze runs the long-timeout analysis used for reporter videos
func (a *Analyzer) FullAnalyze(ctx context.Context, clipPath string, lat, lng float64) (*AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, fullAnalysisTimeout)
	defer cancel()
	return a.analyze(ctx, "/v1/analyze", clipPath, lat, lng)
}

func (a *Analyzer) analyze(ctx context.Context, path, clipPath string, lat, lng float64) (*AnalysisResult, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("analysis service is not configured")
	}

	file, err := os.Open(clipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open clip: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("video", filepath.Base(clipPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read clip: %w", err)
	}
	writer.WriteField("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	writer.WriteField("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	var result AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return &result, nil
}
