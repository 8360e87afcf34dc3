package condition

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"pandafinder/internal/model"
)

const ratingPrompt = "Du vurderer stand-beskrivelser for brugte biler. " +
	"Svar KUN med ét tal mellem 0.0 (defekt) og 1.0 (som ny)."

// Resolver turns raw condition text into a score. With an API key it asks
// an LLM about text the keyword tables cannot read; without one it is
// keyword-only and never leaves the process.
type Resolver struct {
	client *openai.Client
	model  string
}

func NewResolver(apiKey string) *Resolver {
	r := &Resolver{model: openai.GPT4oMini}
	if apiKey != "" {
		r.client = openai.NewClient(apiKey)
	}
	return r
}

// Resolve scores one condition text. The LLM fires only when the keyword
// pass extracted no signal at all; any LLM failure falls back to the
// keyword result, so resolution cannot fail.
func (r *Resolver) Resolve(ctx context.Context, text string) (float64, string) {
	if strings.TrimSpace(text) == "" {
		return 0.5, "Ukendt"
	}

	score, info := Parse(text)
	if r.client == nil || len(info.Matches) > 0 || len(info.Modifiers) > 0 {
		return score, Describe(score)
	}

	rated, err := r.ask(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("text", text).Msg("condition rating fallback failed")
		return score, Describe(score)
	}
	return rated, Describe(rated)
}

func (r *Resolver) ask(ctx context.Context, text string) (float64, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ratingPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("empty completion")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable rating %q: %w", raw, err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("rating %g outside [0,1]", v)
	}
	return v, nil
}

// ResolveAll fills ConditionScore for every listing that does not have one
// yet, fanning the work out over a small worker pool. Listings without any
// condition text get the band label as their display string.
func (r *Resolver) ResolveAll(ctx context.Context, listings []model.Listing) {
	const maxWorkers = 8
	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				score, label := r.Resolve(ctx, listings[idx].ConditionStr)
				listings[idx].ConditionScore = &score
				if listings[idx].ConditionStr == "" {
					listings[idx].ConditionStr = label
				}
			}
		}()
	}

	for i := range listings {
		if listings[i].ConditionScore == nil {
			jobs <- i
		}
	}
	close(jobs)
	wg.Wait()
}
