package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// GenerationModel is the chat model used to synthesize answers.
const GenerationModel = openai.ChatModelGPT4oMini

// Generator produces grounded answers from an assembled prompt.
type Generator struct {
	client *Client
	model  openai.ChatModel
}

// NewGenerator creates a Generator using the shared client.
func NewGenerator(client *Client) *Generator {
	return &Generator{client: client, model: GenerationModel}
}

// Answer runs one chat completion over the system and user prompts and
// returns the synthesized answer text. Errors carry provider
// classification via Classify.
func (g *Generator) Answer(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       g.model,
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
