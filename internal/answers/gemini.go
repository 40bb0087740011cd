package answers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// GeminiGenerator answers form questions with a short Gemini completion. It
// is only consulted for questions the profile cannot answer directly.
type GeminiGenerator struct {
	client  *genai.Client
	profile string
}

// NewGemini builds a generator; profileSummary is prepended to every prompt
// so answers stay consistent with the applicant.
func NewGemini(ctx context.Context, apiKey, profileSummary string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiGenerator{client: client, profile: profileSummary}, nil
}

func (g *GeminiGenerator) Answer(ctx context.Context, question string) (string, error) {
	model := g.client.GenerativeModel(geminiModel)
	model.SetTemperature(0.1)

	prompt := fmt.Sprintf(
		"You are filling in a job application form on behalf of this candidate:\n%s\n\n"+
			"Answer the following form question in one short sentence, first person, "+
			"no preamble, no markdown. If the question expects a number, answer with "+
			"just the number.\n\nQuestion: %s",
		g.profile, question)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return extractText(resp)
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini: no text parts")
	}
	return out, nil
}
