// Package openai adapts the OpenAI chat completion API to enrich.Generator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel     = "gpt-4"
	DefaultMaxTokens = 1000
	// DefaultSystemPrompt frames the model as the catalog copywriter.
	DefaultSystemPrompt = "Sei un copywriter esperto di e-commerce per costumi e articoli per feste. " +
		"Scrivi testi in italiano, chiari e orientati alla vendita, senza inventare caratteristiche non presenti nei dati."
	DefaultTemperature float32 = 0.7
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	// Retries is the number of extra attempts after a failed call.
	Retries int
	Backoff time.Duration
	Timeout time.Duration
}

// Generator sends one chat completion per prompt.
type Generator struct {
	client chatCompleter
	opt    Options
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(apiKey string, opt Options) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: missing API key")
	}
	return newGenerator(goopenai.NewClient(apiKey), opt), nil
}

func newGenerator(c chatCompleter, opt Options) *Generator {
	if opt.Model == "" {
		opt.Model = DefaultModel
	}
	if opt.SystemPrompt == "" {
		opt.SystemPrompt = DefaultSystemPrompt
	}
	if opt.MaxTokens <= 0 {
		opt.MaxTokens = DefaultMaxTokens
	}
	if opt.Temperature == 0 {
		opt.Temperature = DefaultTemperature
	}
	if opt.Retries < 0 {
		opt.Retries = 0
	}
	return &Generator{client: c, opt: opt, sleep: sleepCtx}
}

// Generate returns the trimmed content of the first choice.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: g.opt.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: g.opt.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.opt.MaxTokens,
		Temperature: g.opt.Temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= g.opt.Retries; attempt++ {
		if attempt > 0 {
			if err := g.sleep(ctx, time.Duration(attempt)*g.opt.Backoff); err != nil {
				return "", err
			}
		}
		text, err := g.once(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("openai: %d attempt(s): %w", g.opt.Retries+1, lastErr)
}

func (g *Generator) once(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	if g.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opt.Timeout)
		defer cancel()
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
