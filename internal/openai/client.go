package openai

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultCompletionModel is the model used for keyword extraction and summarization
	DefaultCompletionModel = openai.GPT4oMini

	summaryMaxTokens = 60
)

// ProviderAPI defines the raw provider surface: one embedding endpoint and
// one chat completion endpoint shared by keyword extraction and summarization.
type ProviderAPI interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateCompletion(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// OpenAIAdapter implements ProviderAPI against the OpenAI API
type OpenAIAdapter struct {
	client          *openai.Client
	embeddingModel  openai.EmbeddingModel
	completionModel string
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		client:          openai.NewClient(apiKey),
		embeddingModel:  DefaultEmbeddingModel,
		completionModel: DefaultCompletionModel,
	}
}

// CreateEmbedding calls the OpenAI embeddings endpoint
func (a *OpenAIAdapter) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat completions endpoint
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.completionModel,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Enrichment is the derived representation of a knowledge item's content.
// Any field may be its zero value when the corresponding derivation failed;
// partial enrichment is an acceptable terminal state.
type Enrichment struct {
	Embedding []float32
	Keywords  []string
	Summary   string
}

// Client wraps the embedding provider with per-call local fallbacks. A nil
// or unconfigured provider degrades every call to its fallback; nothing in
// this package surfaces provider failures as errors to callers.
type Client struct {
	api        ProviderAPI
	dimensions int
}

// NewClient creates a provider client. An empty API key yields a client
// that serves only the local fallbacks.
func NewClient(apiKey string) *Client {
	var api ProviderAPI
	if apiKey != "" {
		api = NewOpenAIAdapter(apiKey)
	}
	return NewClientWithAPI(api)
}

// NewClientWithAPI creates a client over an explicit ProviderAPI implementation
func NewClientWithAPI(api ProviderAPI) *Client {
	return &Client{
		api:        api,
		dimensions: DefaultEmbeddingDimensions,
	}
}

// NewClientFromEnv creates a client using the OPENAI_API_KEY environment variable
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv("OPENAI_API_KEY"))
}

// Configured reports whether a real provider backs this client
func (c *Client) Configured() bool {
	return c.api != nil
}

// GenerateEmbedding returns the embedding for text, or an empty slice when
// the provider is unconfigured or the call fails. Callers must treat an
// empty result as "no embedding available", not a fatal error.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) []float32 {
	if c.api == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	embedding, err := c.api.CreateEmbedding(ctx, text)
	if err != nil {
		log.Printf("embedding generation failed, continuing without: %v", err)
		return nil
	}

	if len(embedding) != c.dimensions {
		log.Printf("embedding has %d dimensions, expected %d, discarding", len(embedding), c.dimensions)
		return nil
	}

	return embedding
}

// ExtractKeywords derives 5-7 lowercase keywords from text, degrading to a
// local heuristic when the provider is unavailable.
func (c *Client) ExtractKeywords(ctx context.Context, text string) []string {
	if c.api == nil {
		return heuristicKeywords(text)
	}

	raw, err := c.api.CreateCompletion(ctx,
		"Extract 5-7 keywords from the text. Respond with only the keywords, comma-separated, no numbering.",
		text, 40)
	if err != nil {
		log.Printf("keyword extraction failed, using heuristic: %v", err)
		return heuristicKeywords(text)
	}

	keywords := parseKeywordList(raw)
	if len(keywords) == 0 {
		return heuristicKeywords(text)
	}
	return keywords
}

// Summarize produces a single-sentence summary of at most 50 words,
// degrading to plain truncation when the provider is unavailable.
func (c *Client) Summarize(ctx context.Context, text string) string {
	if c.api == nil {
		return truncateSummary(text)
	}

	summary, err := c.api.CreateCompletion(ctx,
		"Summarize the text in one sentence of at most 50 words. Respond with only the sentence.",
		text, summaryMaxTokens)
	if err != nil {
		log.Printf("summarization failed, truncating instead: %v", err)
		return truncateSummary(text)
	}

	if summary == "" {
		return truncateSummary(text)
	}
	return summary
}

// Enrich derives embedding, keywords and summary for content. The three
// calls are independent and run concurrently; individual failures degrade
// per-field rather than aborting the whole enrichment.
func (c *Client) Enrich(ctx context.Context, content string) Enrichment {
	var enrichment Enrichment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		enrichment.Embedding = c.GenerateEmbedding(gctx, content)
		return nil
	})
	g.Go(func() error {
		enrichment.Keywords = c.ExtractKeywords(gctx, content)
		return nil
	})
	g.Go(func() error {
		enrichment.Summary = c.Summarize(gctx, content)
		return nil
	})
	_ = g.Wait()

	return enrichment
}

var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "will": {},
	"been": {}, "were": {}, "they": {}, "them": {}, "their": {}, "there": {},
	"about": {}, "would": {}, "could": {}, "should": {}, "which": {},
	"what": {}, "when": {}, "where": {}, "your": {}, "just": {}, "into": {},
	"than": {}, "then": {}, "some": {}, "very": {}, "also": {}, "because": {},
}

// heuristicKeywords is the provider-free fallback: tokenize on non-word
// characters, keep tokens longer than 3 chars, drop stop words, dedupe,
// take the first 5 in original order.
func heuristicKeywords(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})

	seen := make(map[string]struct{})
	var keywords []string
	for _, token := range tokens {
		if len(token) <= 3 {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

// parseKeywordList normalizes a comma-separated completion response
func parseKeywordList(raw string) []string {
	parts := strings.Split(raw, ",")
	var keywords []string
	for _, part := range parts {
		keyword := strings.ToLower(strings.TrimSpace(part))
		if keyword == "" {
			continue
		}
		keywords = append(keywords, keyword)
		if len(keywords) == 7 {
			break
		}
	}
	return keywords
}

// truncateSummary is the provider-free fallback for Summarize
func truncateSummary(text string) string {
	if len(text) <= 100 {
		return text
	}
	return text[:97] + "..."
}
