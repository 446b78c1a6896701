package ai

import (
	"context"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/utils"
)

// FeedbackGenerator produces the per-skill AI feedback objects. Every method
// returns nil instead of an error on any failure (network, non-2xx,
// unparseable output) so a single flaky call can never short-circuit a whole
// submission. The parsed object is returned unmodified; downstream code reads
// its fields defensively.
type FeedbackGenerator interface {
	PassageFeedback(ctx context.Context, skill models.Skill, passage *models.Passage, answers map[uint]string) map[string]any
	SpeakingFeedback(ctx context.Context, question, transcript string) map[string]any
	WritingFeedback(ctx context.Context, prompt, essay string, wordCount int) map[string]any
}

type feedbackGenerator struct {
	gen    TextGenerator
	logger utils.Logger
}

func NewFeedbackGenerator(gen TextGenerator, logger utils.Logger) FeedbackGenerator {
	return &feedbackGenerator{gen: gen, logger: logger}
}

func (g *feedbackGenerator) PassageFeedback(ctx context.Context, skill models.Skill, passage *models.Passage, answers map[uint]string) map[string]any {
	return g.generate(ctx, string(skill), buildPassagePrompt(skill, passage, answers))
}

func (g *feedbackGenerator) SpeakingFeedback(ctx context.Context, question, transcript string) map[string]any {
	return g.generate(ctx, "speaking", buildSpeakingPrompt(question, transcript))
}

func (g *feedbackGenerator) WritingFeedback(ctx context.Context, prompt, essay string, wordCount int) map[string]any {
	return g.generate(ctx, "writing", buildWritingPrompt(prompt, essay, wordCount))
}

func (g *feedbackGenerator) generate(ctx context.Context, skill, prompt string) map[string]any {
	raw, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("AI feedback request failed", "skill", skill, "error", err)
		return nil
	}

	parsed := ExtractJSON(raw)
	if parsed == nil {
		g.logger.Warn("AI feedback response had no usable JSON", "skill", skill, "length", len(raw))
	}
	return parsed
}
