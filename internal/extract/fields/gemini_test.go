package fields

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// mockGenerator implements ContentGenerator for tests.
type mockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.GenerateContentFunc(ctx, model, contents, config)
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}}},
		},
	}
}

func replying(s string) *mockGenerator {
	return &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(s), nil
		},
	}
}

func TestGeminiExtractor_ParsesFencedJSON(t *testing.T) {
	var gotModel string
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			return textResponse("```json\n{\"vendor\": \"Acme\", \"amount\": 1200, \"date\": \"2024-03-15\", \"payment_method\": \"UPI\", \"tax_amount\": null, \"tax_percentage\": 18}\n```"), nil
		},
	}

	f, err := NewGeminiExtractor(gen, "").ExtractAll(context.Background(), "ACME 1200")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, DefaultModelName, gotModel)
	assert.Equal(t, "Acme", f.Vendor)
	require.NotNil(t, f.Amount)
	assert.Equal(t, "1200", f.Amount.String())
	assert.Equal(t, &civil.Date{Year: 2024, Month: 3, Day: 15}, f.Date)
	require.NotNil(t, f.PaymentMethod)
	assert.Equal(t, "UPI", *f.PaymentMethod)
	assert.Nil(t, f.TaxAmount)
	require.NotNil(t, f.TaxPercentage)
	assert.Equal(t, "18", f.TaxPercentage.String())
}

func TestGeminiExtractor_AllNullIsNil(t *testing.T) {
	f, err := NewGeminiExtractor(replying(`{"vendor": null, "amount": null, "date": null}`), "m").
		ExtractAll(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestGeminiExtractor_NonPositiveAmountDropped(t *testing.T) {
	f, err := NewGeminiExtractor(replying(`{"vendor": "Acme", "amount": -5}`), "m").
		ExtractAll(context.Background(), "Acme refund")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Nil(t, f.Amount)
}

func TestGeminiExtractor_Errors(t *testing.T) {
	failing := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	_, err := NewGeminiExtractor(failing, "m").ExtractAll(context.Background(), "x")
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = NewGeminiExtractor(replying("not json"), "m").ExtractAll(context.Background(), "x")
	assert.ErrorContains(t, err, "unmarshal JSON")
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding text", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

// stubExtractor implements Extractor for chain tests.
type stubExtractor struct {
	ExtractAllFunc func(ctx context.Context, text string) (*domain.ExtractedFields, error)
	calls          int
}

func (s *stubExtractor) ExtractAll(ctx context.Context, text string) (*domain.ExtractedFields, error) {
	s.calls++
	return s.ExtractAllFunc(ctx, text)
}

func TestChain(t *testing.T) {
	found := &domain.ExtractedFields{Vendor: "Acme"}
	ok := &stubExtractor{ExtractAllFunc: func(ctx context.Context, text string) (*domain.ExtractedFields, error) { return found, nil }}
	none := &stubExtractor{ExtractAllFunc: func(ctx context.Context, text string) (*domain.ExtractedFields, error) { return nil, nil }}
	broken := &stubExtractor{ExtractAllFunc: func(ctx context.Context, text string) (*domain.ExtractedFields, error) {
		return nil, errors.New("boom")
	}}

	t.Run("first non-nil wins", func(t *testing.T) {
		f, err := NewChain(none, ok).ExtractAll(context.Background(), "x")
		require.NoError(t, err)
		assert.Same(t, found, f)
	})

	t.Run("error falls through", func(t *testing.T) {
		f, err := NewChain(broken, ok).ExtractAll(context.Background(), "x")
		require.NoError(t, err)
		assert.Same(t, found, f)
	})

	t.Run("nothing found", func(t *testing.T) {
		f, err := NewChain(none, broken).ExtractAll(context.Background(), "x")
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("all failed", func(t *testing.T) {
		_, err := NewChain(broken).ExtractAll(context.Background(), "x")
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("stops at first hit", func(t *testing.T) {
		first := &stubExtractor{ExtractAllFunc: ok.ExtractAllFunc}
		second := &stubExtractor{ExtractAllFunc: ok.ExtractAllFunc}
		_, err := NewChain(first, second).ExtractAll(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, 1, first.calls)
		assert.Zero(t, second.calls)
	})
}
