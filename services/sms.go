package services

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/trafficguard/backend/models"
)

const (
	// Keep the summary inside a 3-segment SMS
	maxSMSLength         = 450
	maxDescriptionLength = 120
)

// SMSConfig holds SMS gateway settings
type SMSConfig struct {
	GatewayURL      string
	APIKey          string
	SenderID        string
	DispatchNumbers []string
}

// SMSService formats emergency summaries and dispatches them through an
// external SMS gateway to the configured dispatch numbers. Stateless.
type SMSService struct {
	cfg    SMSConfig
	client *http.Client
}

// NewSMSService creates an SMS service. A missing gateway URL or empty
// number list leaves the service disabled (dispatch becomes a no-op).
func NewSMSService(cfg SMSConfig) *SMSService {
	return &SMSService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether the service is configured to send anything
func (s *SMSService) Enabled() bool {
	return s != nil && s.cfg.GatewayURL != "" && len(s.cfg.DispatchNumbers) > 0
}

// NumberResult is the outcome of one dispatch attempt
type NumberResult struct {
	Number  string `json:"number"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DispatchResult aggregates per-number outcomes. Success is true when at
// least one number was reached; partial failure does not fail the call.
type DispatchResult struct {
	Success bool           `json:"success"`
	Sent    int            `json:"sent"`
	Failed  int            `json:"failed"`
	Results []NumberResult `json:"results"`
}

// ShouldEscalate reports whether an emergency severity warrants SMS dispatch
func ShouldEscalate(severity models.Severity) bool {
	return severity == models.SeverityHigh || severity == models.SeverityCritical
}

// FormatEmergencyMessage builds the bounded-length text summary of an emergency
func FormatEmergencyMessage(e *models.Emergency) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 %s EMERGENCY: %s\n", strings.ToUpper(string(e.Severity)), e.Type)
	fmt.Fprintf(&b, "Location: %s\n", e.LocationName)
	fmt.Fprintf(&b, "GPS: https://maps.google.com/?q=%.6f,%.6f\n", e.Lat, e.Lng)

	if e.Description != nil && *e.Description != "" {
		desc := *e.Description
		if len(desc) > maxDescriptionLength {
			desc = desc[:maxDescriptionLength-3] + "..."
		}
		fmt.Fprintf(&b, "%s\n", desc)
	}
	if e.Casualties > 0 {
		fmt.Fprintf(&b, "Casualties: %d\n", e.Casualties)
	}
	if e.VehiclesInvolved > 0 {
		fmt.Fprintf(&b, "Vehicles: %d\n", e.VehiclesInvolved)
	}
	if services, ok := e.ServicesNeeded.Data.([]interface{}); ok && len(services) > 0 {
		names := make([]string, 0, len(services))
		for _, s := range services {
			if name, ok := s.(string); ok {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, "Needs: %s\n", strings.Join(names, ", "))
		}
	}
	if e.ContactPhone != nil && *e.ContactPhone != "" {
		contact := *e.ContactPhone
		if e.ContactName != nil && *e.ContactName != "" {
			contact = *e.ContactName + " " + contact
		}
		fmt.Fprintf(&b, "Contact: %s\n", contact)
	}

	msg := strings.TrimRight(b.String(), "\n")
	if len(msg) > maxSMSLength {
		msg = msg[:maxSMSLength]
	}
	return msg
}

// DispatchEmergency sends the emergency summary to every configured number
// independently and aggregates the outcomes. Callers log the result but do
// not act on it further.
func (s *SMSService) DispatchEmergency(e *models.Emergency) DispatchResult {
	if !s.Enabled() {
		return DispatchResult{}
	}

	message := FormatEmergencyMessage(e)
	results := make([]NumberResult, len(s.cfg.DispatchNumbers))

	var wg sync.WaitGroup
	for i, number := range s.cfg.DispatchNumbers {
		wg.Add(1)
		go func(i int, number string) {
			defer wg.Done()
			if err := s.send(number, message); err != nil {
				results[i] = NumberResult{Number: number, Error: err.Error()}
				return
			}
			results[i] = NumberResult{Number: number, Success: true}
		}(i, number)
	}
	wg.Wait()

	out := DispatchResult{Results: results}
	for _, r := range results {
		if r.Success {
			out.Sent++
		} else {
			out.Failed++
		}
	}
	out.Success = out.Sent > 0

	log.Printf("📱 [SMS] Emergency %d dispatch: %d sent, %d failed", e.ID, out.Sent, out.Failed)
	return out
}

// send posts one message to the gateway
func (s *SMSService) send(number, message string) error {
	form := url.Values{}
	form.Set("to", number)
	form.Set("message", message)
	if s.cfg.SenderID != "" {
		form.Set("sender_id", s.cfg.SenderID)
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.GatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
