package ai

import (
	"context"

	"github.com/openai/openai-go"
)

// Completion is the chat-completion capability handed to the curation
// stages. Implementations must be safe for concurrent use.
type Completion interface {
	Completions(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, model string) (openai.ChatCompletionMessage, error)
}

// Embedding produces query vectors for the vector store.
type Embedding interface {
	Embedding(ctx context.Context, input string, model string) ([]float64, error)
	Embeddings(ctx context.Context, inputs []string, model string) ([][]float64, error)
}
