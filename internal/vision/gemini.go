package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

const identifyPrompt = `Analyze this photo and identify the item. It is either a luxury watch or a trading card.

Respond in JSON format:
- item_type: "watch" or "trading_card"
- For a watch:
  - brand: brand name (e.g. "Rolex", "Omega", "Seiko"), empty string if unknown
  - model: model name (e.g. "Submariner", "Speedmaster"), empty string if unknown
  - reference_number: the reference number, CRITICAL for pricing. Look on the dial edge, case back, documentation, tags, or boxes. Often 6 digits, possibly with letters (e.g. "126334", "116610LN", "M126334-0027"). Empty string if not visible.
- For a trading card:
  - card_name: full card name (e.g. "Charizard", "Blue-Eyes White Dragon")
  - set_name: set or series (e.g. "Base Set", "1986 Fleer")
  - card_number: number within the set if visible
  - year: print year if visible
  - grade: grading label if present (e.g. "PSA 10", "BGS 9.5"). Grades significantly affect value.
  - cert_number: certification number from the grading label, usually 8 digits
  - edition: "1st Edition", "Unlimited", etc. if marked
- condition: visible condition (e.g. "Pre-owned", "New", "Near Mint"), empty string if unclear
- description: 1-2 sentences describing visible features and any text
- search_query: a marketplace search query for finding this exact item (brand + model + reference for watches, name + set + grade for cards)
- confidence: "high", "medium", or "low" based on image clarity

Example response:
{"item_type": "watch", "brand": "Rolex", "model": "Datejust", "reference_number": "126334", "condition": "Pre-owned", "description": "Steel Datejust with fluted bezel and mint green dial on a Jubilee bracelet.", "search_query": "Rolex Datejust 126334", "confidence": "high"}

Respond ONLY with the JSON object, no markdown or other text.`

const identifyMultiImagePrompt = `Analyze these photos showing the same item from different angles. It is either a luxury watch or a trading card. Use all photos together: reference numbers, grading labels, and certification numbers are often visible in only one photo.

Respond in JSON format:
- item_type: "watch" or "trading_card"
- For a watch: brand, model, reference_number (empty strings if unknown)
- For a trading card: card_name, set_name, card_number, year, grade, cert_number, edition
- condition: visible condition, empty string if unclear
- description: 1-2 sentences describing features visible across the photos
- search_query: a marketplace search query for finding this exact item
- confidence: "high", "medium", or "low"

Respond ONLY with the JSON object, no markdown or other text.`

// GeminiIdentifier uses Google's Gemini API for item identification.
type GeminiIdentifier struct {
	client *genai.Client
}

// NewGeminiIdentifier creates a new Gemini-based identifier.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiIdentifier(ctx context.Context) (*GeminiIdentifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiIdentifier{client: client}, nil
}

// IdentifyImage implements the Identifier interface using Gemini.
// It delegates to IdentifyImages with a single-element slice.
func (g *GeminiIdentifier) IdentifyImage(ctx context.Context, imageData []byte, mimeType string) (*Result, error) {
	return g.IdentifyImages(ctx, [][]byte{imageData})
}

// IdentifyImages identifies an item from one or more photos.
func (g *GeminiIdentifier) IdentifyImages(ctx context.Context, images [][]byte) (*Result, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}

	// Limit to 10 images (Telegram's album limit)
	if len(images) > 10 {
		images = images[:10]
	}

	prompt := identifyPrompt
	if len(images) > 1 {
		prompt = identifyMultiImagePrompt
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}
	for _, imgData := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: imgData, MIMEType: "image/jpeg"},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	item, err := parseIdentification(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}

	log.Info().
		Str("model", geminiModel).
		Int("imageCount", len(images)).
		Str("itemType", string(item.ItemType)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("identification llm call")

	return &Result{Item: item, Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func parseIdentification(text string) (*Identification, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var id Identification
	if err := json.Unmarshal([]byte(jsonStr), &id); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	return &id, nil
}
