package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	legacy "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// LegacyGeminiVision implements VisionProvider on the earlier
// generative-ai-go SDK, which carries the stable multimodal input path
// for page images.
type LegacyGeminiVision struct {
	Model string
}

var _ VisionProvider = (*LegacyGeminiVision)(nil)

// GenerateFromImages sends a prompt plus one or more page images and
// returns the model's text response.
func (p *LegacyGeminiVision) GenerateFromImages(ctx context.Context, prompt string, images [][]byte, mimeType string) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no images provided")
	}

	client, err := legacy.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	modelName := p.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash-exp"
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)

	// The SDK wants "png"/"jpeg", not the full MIME type.
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" {
		format = "png"
	}

	parts := make([]legacy.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, legacy.ImageData(format, img))
	}
	parts = append(parts, legacy.Text(prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini vision generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini vision returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(legacy.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}
