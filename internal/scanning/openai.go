package scanning

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAI implements VisionModel using the OpenAI chat completions API
type OpenAI struct {
	llm   llms.Model
	model string
}

// NewOpenAI creates a new OpenAI vision model. baseURL may be empty.
func NewOpenAI(apiKey, modelName, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	opts := []openai.Option{
		openai.WithModel(modelName),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &OpenAI{llm: llm, model: modelName}, nil
}

func (o *OpenAI) Name() string { return "openai/" + o.model }

// Generate sends the image as a data URL along with the prompt
func (o *OpenAI) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(visionSystemPrompt)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.ImageURLPart(dataURL),
				llms.TextPart(prompt),
			},
		},
	}

	completion, err := o.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(8000),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return completion.Choices[0].Content, nil
}

// Close is a no-op; the client holds no resources
func (o *OpenAI) Close() error {
	return nil
}
