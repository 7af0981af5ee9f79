package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/vyjcapital/vyj_backend/models"
)

// maxScanWidth is the widest image sent to the extraction model; larger
// uploads are downscaled to keep requests small
const maxScanWidth = 1600

// ModelParseError means the model answered but the reply could not be read
// as the expected fields. Raw carries the reply for the operator.
type ModelParseError struct {
	Raw string
}

func (e *ModelParseError) Error() string {
	return "model response could not be parsed as document fields"
}

// OCRService extracts structured fields from document images through a
// generative vision model
type OCRService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOCRService creates a new OCR service instance
func NewOCRService() *OCRService {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Printf("WARNING: GEMINI_API_KEY is not set; document scanning will fail")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &OCRService{
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ScanDocument sends a document image to the model and returns the flat
// field mapping it extracted. docType selects the prompt: identity cards
// yield personal fields, collateral photos yield a description and value.
func (s *OCRService) ScanDocument(ctx context.Context, image []byte, docType, mimeType string) (*models.ScanDocumentResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not configured")
	}

	prompt, err := promptForDocType(docType)
	if err != nil {
		return nil, err
	}

	image, mimeType = normalizeImage(image, mimeType)

	text, err := s.generate(ctx, prompt, image, mimeType)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal([]byte(extractJSON(text)), &fields); err != nil {
		return nil, &ModelParseError{Raw: text}
	}

	return &models.ScanDocumentResult{Fields: fields}, nil
}

func promptForDocType(docType string) (string, error) {
	switch docType {
	case models.DocTypeIdentity:
		return "Extract the following fields from this identity document and answer with a single JSON object, no markdown: " +
			`{"fullName": string, "nationalId": string, "birthDate": string, "birthPlace": string, "gender": string, "address": string}. ` +
			"Use null for fields not visible.", nil
	case models.DocTypeCollateral:
		return "Describe the item in this photo as loan collateral and answer with a single JSON object, no markdown: " +
			`{"description": string, "estimatedValue": number}. Estimate a conservative resale value in local currency.`, nil
	default:
		return "", fmt.Errorf("unknown document type: %s", docType)
	}
}

// normalizeImage downscales oversized uploads and re-encodes them as JPEG.
// Images the decoder cannot read are passed through untouched.
func normalizeImage(data []byte, mimeType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mimeType
	}

	if img.Bounds().Dx() > maxScanWidth {
		img = imaging.Resize(img, maxScanWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}

func (s *OCRService) generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(image),
						},
					},
				},
			},
		},
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

// extractJSON strips markdown fences and surrounding prose so the first
// JSON object in the reply can be unmarshalled
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
