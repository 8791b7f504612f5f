package image

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the vision model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

const ocrPrompt = "Extract all text visible in this image. " +
	"Return only the text, preserving line breaks and reading order. " +
	"If there is no text, describe the image in one sentence."

// GeminiRecognizer runs OCR through the Gemini API.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
}

// NewGeminiRecognizer creates a recognizer for the Gemini API.
func NewGeminiRecognizer(ctx context.Context, apiKey, model string) (*GeminiRecognizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiRecognizer{client: client, model: model}, nil
}

// Recognize sends the image inline with the OCR prompt.
func (g *GeminiRecognizer) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				{Text: ocrPrompt},
			},
		}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
