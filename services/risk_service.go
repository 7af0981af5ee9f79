package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/vyjcapital/vyj_backend/models"
)

// RiskService generates a structured risk profile for a person through a
// generative model. It tries the search-grounded mode first and falls back
// to the plain model; when both fail the caller still gets a usable
// INDETERMINATE profile instead of an error.
type RiskService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewRiskService creates a new risk-profile service instance
func NewRiskService() *RiskService {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Printf("WARNING: GEMINI_API_KEY is not set; risk audits will return INDETERMINATE")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &RiskService{
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 45 * time.Second},
	}
}

// GenerateProfile runs the risk audit for a full name and optional
// national id. It never fails: every degradation path ends in a profile.
func (s *RiskService) GenerateProfile(ctx context.Context, fullName, nationalID string) *models.RiskProfile {
	prompt := buildAuditPrompt(fullName, nationalID)

	// Grounded mode first, plain model on failure
	text, err := s.generate(ctx, prompt, true)
	source := "grounded"
	if err != nil {
		log.Printf("grounded risk audit failed, retrying without search: %v", err)
		text, err = s.generate(ctx, prompt, false)
		source = "model"
	}
	if err != nil {
		log.Printf("risk audit failed in both modes: %v", err)
		return &models.RiskProfile{
			RiskSummary: fmt.Sprintf("Automated audit unavailable for %s: %v", fullName, err),
			RiskLevel:   models.RiskLevelIndeterminate,
		}
	}

	var profile models.RiskProfile
	if err := json.Unmarshal([]byte(extractJSON(text)), &profile); err != nil {
		// Unparseable reply: surface the raw text rather than dropping it
		return &models.RiskProfile{
			RiskSummary: text,
			RiskLevel:   models.RiskLevelIndeterminate,
			Source:      source,
		}
	}

	if !validRiskLevel(profile.RiskLevel) {
		profile.RiskLevel = models.RiskLevelIndeterminate
	}
	profile.Source = source
	return &profile
}

func validRiskLevel(level string) bool {
	switch level {
	case models.RiskLevelLow, models.RiskLevelMedium, models.RiskLevelHigh, models.RiskLevelIndeterminate:
		return true
	}
	return false
}

func buildAuditPrompt(fullName, nationalID string) string {
	subject := fullName
	if nationalID != "" {
		subject = fmt.Sprintf("%s (id number %s)", fullName, nationalID)
	}
	return fmt.Sprintf("You are a KYC analyst for a small lending operation. Research %s and answer with a single JSON object, no markdown: "+
		`{"riskSummary": string, "riskLevel": "LOW"|"MEDIUM"|"HIGH"|"INDETERMINATE", `+
		`"profiles": [{"platform": string, "url": string, "highConfidenceMatch": boolean}], `+
		`"keyFindings": [string]}. Be factual and concise; when nothing can be verified use riskLevel INDETERMINATE.`, subject)
}

func (s *RiskService) generate(ctx context.Context, prompt string, grounded bool) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is not configured")
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]interface{}{{"text": prompt}}},
		},
	}
	if grounded {
		payload["tools"] = []map[string]interface{}{
			{"google_search": map[string]interface{}{}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
