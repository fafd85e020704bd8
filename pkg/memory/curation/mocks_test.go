package curation

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/mock"

	"github.com/mnemoshard/mnemo/pkg/memory/vectorstore"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// scriptedOracle replies with a fixed sequence of texts, recording every
// prompt it was asked. Once the script runs out it returns Err if set,
// otherwise an empty reply.
type scriptedOracle struct {
	mu      sync.Mutex
	Replies []string
	Err     error
	Prompts []string
}

func (o *scriptedOracle) Completions(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, model string) (openai.ChatCompletionMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, msg := range messages {
		if msg.OfUser != nil {
			o.Prompts = append(o.Prompts, msg.OfUser.Content.OfString.Value)
		}
	}

	if len(o.Replies) == 0 {
		if o.Err != nil {
			return openai.ChatCompletionMessage{}, o.Err
		}
		return openai.ChatCompletionMessage{}, nil
	}

	reply := o.Replies[0]
	o.Replies = o.Replies[1:]
	return openai.ChatCompletionMessage{Content: reply}, nil
}

// MockStore mocks the vector store capability.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Search(ctx context.Context, query string, workspaceID string, topK int, filterDict map[string]string) ([]vectorstore.Record, error) {
	args := m.Called(ctx, query, workspaceID, topK, filterDict)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	records, _ := args.Get(0).([]vectorstore.Record)
	return records, args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// emptyStore satisfies searches with no hits; for tests that exercise
// stages which never touch storage.
func emptyStore() *MockStore {
	store := &MockStore{}
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]vectorstore.Record{}, nil).Maybe()
	return store
}

func newTestPipeline(oracle *scriptedOracle, store *MockStore, cfg Config) *Pipeline {
	p, err := NewPipeline(Dependencies{
		Logger:           testLogger(),
		Completions:      oracle,
		CompletionsModel: "test-model",
		Store:            store,
	}, cfg)
	if err != nil {
		panic(err)
	}
	return p
}
