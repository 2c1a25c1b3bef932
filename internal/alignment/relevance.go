package alignment

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/genai"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

// RelevanceScorer checks whether a political activity's description is
// actually about the business it was attributed to, using embedding
// similarity. It exists to filter news-derived statements that merely
// mention a business in passing.
type RelevanceScorer struct {
	client *genai.Client
	model  string
}

// NewRelevanceScorer builds a scorer backed by the GenAI embedding API.
// An empty API key returns (nil, nil): relevance scoring is optional and
// the pipeline runs without it.
func NewRelevanceScorer(ctx context.Context, apiKey, model string) (*RelevanceScorer, error) {
	if apiKey == "" {
		return nil, nil
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	logging.Alignment("relevance scorer enabled with model %s", model)
	return &RelevanceScorer{client: client, model: model}, nil
}

// Score returns the cosine similarity in [0,1] between the business's own
// description and an activity's description.
func (r *RelevanceScorer) Score(ctx context.Context, b *types.Business, activity *types.PoliticalActivity) (float64, error) {
	if activity.Description == "" {
		return 0, nil
	}

	businessText := b.Name + ". " + b.Description
	vecs, err := r.embed(ctx, []string{businessText, activity.Description})
	if err != nil {
		return 0, err
	}

	sim := cosine(vecs[0], vecs[1])
	// Map [-1,1] onto [0,1].
	return (sim + 1) / 2, nil
}

func (r *RelevanceScorer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := r.client.Models.EmbedContent(ctx, r.model, contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
