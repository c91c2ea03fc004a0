// Package scanner wraps the external prescription vision API: image in,
// parsed medicine candidates out, plus a text-only interaction check.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pharmadesk/m/domain"
)

type Client interface {
	// ParsePrescription extracts line candidates from a base64-encoded
	// prescription image. Data-URL prefixes are tolerated.
	ParsePrescription(ctx context.Context, imageData string) ([]domain.ParsedItem, error)
	// CheckInteractions returns short warning strings for the given
	// brand names (dose conflicts, steroid/OTC alerts).
	CheckInteractions(ctx context.Context, brands []string) ([]string, error)
}

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"

	parsePrompt = "Parse this prescription into JSON. Extract medicine brand, generic name, strength, dose (e.g., 1+0+1), and quantity. Provide a confidence score (0-1) for each item. If the brand is ambiguous, suggest up to 3 alternative_matches. If a price is mentioned, treat it as selling_price."
)

// VisionClient talks to the generative vision API over its REST
// surface.
type VisionClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewVisionClient(baseURL, apiKey string) *VisionClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &VisionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   defaultModel,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *VisionClient) ParsePrescription(ctx context.Context, imageData string) ([]domain.ParsedItem, error) {
	// Tolerate "data:image/jpeg;base64,...." payloads.
	if idx := strings.IndexByte(imageData, ','); idx >= 0 {
		imageData = imageData[idx+1:]
	}

	req := generateRequest{GenerationConfig: &generationConfig{ResponseMimeType: "application/json"}}
	req.Contents = append(req.Contents, struct {
		Parts []generatePart `json:"parts"`
	}{Parts: []generatePart{
		{InlineData: &inlineData{MimeType: "image/jpeg", Data: imageData}},
		{Text: parsePrompt},
	}})

	text, err := c.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	var items []domain.ParsedItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("decode parsed prescription: %w", err)
	}
	return items, nil
}

func (c *VisionClient) CheckInteractions(ctx context.Context, brands []string) ([]string, error) {
	prompt := "Analyze these medicines for dose conflicts or high-risk categories like steroids or OTC alerts: " +
		strings.Join(brands, ", ") + ". Return a list of short warning strings, one per line."
	req := generateRequest{}
	req.Contents = append(req.Contents, struct {
		Parts []generatePart `json:"parts"`
	}{Parts: []generatePart{{Text: prompt}}})

	text, err := c.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	var warnings []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			warnings = append(warnings, trimmed)
		}
	}
	return warnings, nil
}

func (c *VisionClient) generate(ctx context.Context, payload generateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode vision request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call vision API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision API returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("vision API returned no candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
