package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	errs  []error
	reply string
	reqs  []goopenai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return goopenai.ChatCompletionResponse{}, err
	}
	return goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{{Message: goopenai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func TestGenerate_BuildsRequest(t *testing.T) {
	fc := &fakeClient{reply: "  Costume da pirata  \n"}
	g := newGenerator(fc, Options{})

	out, err := g.Generate(context.Background(), "Scrivi un nome")
	require.NoError(t, err)
	require.Equal(t, "Costume da pirata", out)

	require.Len(t, fc.reqs, 1)
	req := fc.reqs[0]
	require.Equal(t, DefaultModel, req.Model)
	require.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.InDelta(t, 0.7, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	require.Equal(t, goopenai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, "Scrivi un nome", req.Messages[1].Content)
}

func TestGenerate_RetriesThenFails(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeClient{errs: []error{boom, boom, boom}}
	g := newGenerator(fc, Options{Retries: 2})
	g.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := g.Generate(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	require.Len(t, fc.reqs, 3)
}

func TestGenerate_RetrySucceeds(t *testing.T) {
	fc := &fakeClient{errs: []error{errors.New("429")}, reply: "ok"}
	g := newGenerator(fc, Options{Retries: 1})
	g.sleep = func(context.Context, time.Duration) error { return nil }

	out, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(" ", Options{})
	require.Error(t, err)
}
