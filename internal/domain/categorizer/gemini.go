package categorizer

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Gemini suggests categories via the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed suggester.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Suggest asks the model for a single category name covering the items.
func (g *Gemini) Suggest(ctx context.Context, items []string) (string, error) {
	prompt := "You categorize household purchases.\n" +
		"Given the item titles below, answer with a single short category name " +
		"such as \"Groceries\", \"Electronics\", \"Household\", \"Clothing\" or \"Pet Supplies\".\n" +
		"Answer with the category name only, no punctuation, no explanation.\n\nItems:\n"
	for _, item := range items {
		prompt += "- " + item + "\n"
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate category: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	// Models occasionally ignore the no-punctuation instruction.
	text = strings.Trim(text, "`\"'. \n")
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		text = text[:idx]
	}

	return text, nil
}
