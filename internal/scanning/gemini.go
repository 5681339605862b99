package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements VisionModel using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGemini creates a new Gemini vision model
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.1),
		MaxOutputTokens:  ptrInt32(8000),
		ResponseMIMEType: "application/json",
	}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(visionSystemPrompt)},
	}

	return &Gemini{
		client: client,
		model:  model,
		name:   "gemini/" + modelName,
	}, nil
}

func (g *Gemini) Name() string { return g.name }

// Generate sends the image and prompt and returns the concatenated text reply
func (g *Gemini) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/png"
	}
	parts := []genai.Part{
		&genai.Blob{MIMEType: mimeType, Data: image},
		genai.Text(prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func ptrFloat32(f float32) *float32 { return &f }

func ptrInt32(i int32) *int32 { return &i }
