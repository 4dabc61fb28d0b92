package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	// geminiRequestsPerMinute caps outbound calls per endpoint. The free
	// tier allows 15 RPM; staying under it avoids tripping the very quota
	// errors the retry layer exists to absorb.
	geminiRequestsPerMinute = 12

	geminiCallTimeout = 45 * time.Second
)

// Part is one element of a multimodal prompt: either text or an inline image.
type Part struct {
	Text     string
	Image    []byte
	MIMEType string // optional; sniffed from Image when empty
}

// ModelEndpoint is a callable inference target: a model name plus a fixed
// system instruction. Two long-lived instances exist, primary and fallback,
// configured at startup and never mutated.
type ModelEndpoint interface {
	Name() string
	Generate(ctx context.Context, parts []Part) (string, error)
}

// GeminiEndpoint invokes one Gemini model through the genai SDK.
type GeminiEndpoint struct {
	apiKey     string
	model      string
	system     string
	jsonOutput bool
	limiter    *rate.Limiter
}

// NewGeminiEndpoint builds an endpoint for the given model. jsonOutput asks
// the model for an application/json response; the barcode reader wants plain
// text and passes false.
func NewGeminiEndpoint(apiKey, model, systemInstruction string, jsonOutput bool) *GeminiEndpoint {
	return &GeminiEndpoint{
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		system:     systemInstruction,
		jsonOutput: jsonOutput,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/geminiRequestsPerMinute), geminiRequestsPerMinute),
	}
}

func (e *GeminiEndpoint) Name() string { return e.model }

// Generate performs a single model invocation: no retries, no fallback.
// The RetryController owns that policy.
func (e *GeminiEndpoint) Generate(ctx context.Context, parts []Part) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("gemini: API key is empty")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, geminiCallTimeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini: client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	gc := genai.GenerationConfig{Temperature: ptrFloat32(0)}
	if e.jsonOutput {
		gc.ResponseMIMEType = "application/json"
	}
	m.GenerationConfig = gc
	if e.system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(e.system)}}
	}

	gparts := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if len(p.Image) > 0 {
			mime := p.MIMEType
			if mime == "" {
				mime = http.DetectContentType(p.Image)
			}
			gparts = append(gparts, &genai.Blob{MIMEType: mime, Data: p.Image})
			continue
		}
		if p.Text != "" {
			gparts = append(gparts, genai.Text(p.Text))
		}
	}

	start := time.Now()
	resp, err := m.GenerateContent(ctx, gparts...)
	if err != nil {
		return "", err
	}

	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini: empty response from %s", e.model)
	}
	debugLog("Gemini %s responded: %d bytes in %v", e.model, len(txt), time.Since(start))
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
