// Package llm wraps the external embedding and generation models.
package llm

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client shared by the embedder and the answer
// generator.
type Client struct {
	client *openai.Client
}

// NewClient creates the OpenAI client. It reads OPENAI_API_KEY from the
// environment and returns an error if not set.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from the environment itself
	client := openai.NewClient()

	return &Client{client: &client}, nil
}
