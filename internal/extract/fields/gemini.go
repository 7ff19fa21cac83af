package fields

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ContentGenerator is the subset of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor asks a Gemini model for the fields as strict JSON.
type GeminiExtractor struct {
	models ContentGenerator
	model  string
}

// NewGeminiExtractor creates an extractor over an existing generator.
func NewGeminiExtractor(models ContentGenerator, model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{models: models, model: model}
}

// NewGeminiClientExtractor creates a genai client. With project set it talks
// to Vertex AI, otherwise it uses the Gemini API key from the environment.
func NewGeminiClientExtractor(ctx context.Context, model, project, location string) (*GeminiExtractor, error) {
	cfg := &genai.ClientConfig{HTTPOptions: genai.HTTPOptions{APIVersion: "v1"}}
	if project != "" {
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = project
		cfg.Location = location
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClientExtractor: create genai client: %w", err)
	}
	return NewGeminiExtractor(client.Models, model), nil
}

const extractionPrompt = "You are a receipt and invoice parser.\n\n" +
	"Task:\n" +
	"- Read the document text below and extract the purchase it records.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object with these fields:\n" +
	"  - \"vendor\": string or null (the merchant or business name)\n" +
	"  - \"amount\": number or null (the final total paid, positive)\n" +
	"  - \"date\": string or null, ISO format \"YYYY-MM-DD\"\n" +
	"  - \"payment_method\": one of \"Cash\", \"Credit Card\", \"Debit Card\", \"UPI\", \"Net Banking\", \"Wallet\", or null\n" +
	"  - \"tax_amount\": number or null\n" +
	"  - \"tax_percentage\": number or null\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n\n" +
	"Document text:\n"

type modelFields struct {
	Vendor        *string          `json:"vendor"`
	Amount        *decimal.Decimal `json:"amount"`
	Date          *string          `json:"date"`
	PaymentMethod *string          `json:"payment_method"`
	TaxAmount     *decimal.Decimal `json:"tax_amount"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
}

// ExtractAll implements Extractor.
func (e *GeminiExtractor) ExtractAll(ctx context.Context, text string) (*domain.ExtractedFields, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: extractionPrompt + text}},
		},
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("GeminiExtractor.ExtractAll: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("GeminiExtractor.ExtractAll: empty response from model")
	}

	var parsed modelFields
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &parsed); err != nil {
		return nil, fmt.Errorf("GeminiExtractor.ExtractAll: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	f := &domain.ExtractedFields{
		Amount:        parsed.Amount,
		PaymentMethod: parsed.PaymentMethod,
		TaxAmount:     parsed.TaxAmount,
		TaxPercentage: parsed.TaxPercentage,
	}
	if parsed.Vendor != nil {
		f.Vendor = *parsed.Vendor
	}
	if parsed.Date != nil && *parsed.Date != "" {
		d, err := civil.ParseDate(*parsed.Date)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Str("date", *parsed.Date).Msg("Model returned unparseable date, ignoring")
		} else {
			f.Date = &d
		}
	}
	return normalize(f), nil
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
