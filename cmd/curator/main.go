// curator runs one memory curation pass over a chat transcript and
// persists the result, acting as the service layer around the pipeline.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/mnemoshard/mnemo/pkg/ai"
	"github.com/mnemoshard/mnemo/pkg/config"
	"github.com/mnemoshard/mnemo/pkg/memory"
	"github.com/mnemoshard/mnemo/pkg/memory/curation"
	"github.com/mnemoshard/mnemo/pkg/memory/vectorstore"
)

type options struct {
	Workspace string `short:"w" long:"workspace" description:"Workspace id" required:"true"`
	User      string `short:"u" long:"user" description:"Target user name" required:"true"`
	Input     string `short:"i" long:"input" description:"Transcript JSON file" required:"true"`
	Language  string `short:"l" long:"language" description:"Language tag (en, zh)" default:"en"`
	Verbose   bool   `short:"v" long:"verbose" description:"Enable debug logging"`
}

type transcriptMessage struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Time     time.Time      `json:"time"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.LoadConfig(false)
	if err != nil {
		logger.Fatal("Loading config", "error", err)
	}

	messages, err := loadTranscript(opts.Input)
	if err != nil {
		logger.Fatal("Loading transcript", "path", opts.Input, "error", err)
	}

	completions := ai.NewOpenAIService(logger, cfg.CompletionsAPIKey, cfg.CompletionsAPIURL)
	embeddings := ai.NewOpenAIService(logger, cfg.EmbeddingsAPIKey, cfg.EmbeddingsAPIURL)

	weaviateClient, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	})
	if err != nil {
		logger.Fatal("Creating weaviate client", "error", err)
	}
	store := vectorstore.New(weaviateClient, logger, embeddings, cfg.EmbeddingsModel)

	ctx := context.Background()
	if err := store.EnsureSchemaExists(ctx); err != nil {
		logger.Fatal("Ensuring schema", "error", err)
	}

	pipeline, err := curation.NewPipeline(curation.Dependencies{
		Logger:           logger,
		Completions:      completions,
		CompletionsModel: cfg.CompletionsModel,
		Store:            store,
	}, curation.Config{
		ConflictMaxCount: cfg.ConflictMaxCount,
		InsightMaxCount:  cfg.InsightMaxCount,
		InsightThreshold: cfg.InsightThreshold,
		DensityMaxSize:   cfg.DensityMaxSize,
		TodayTopK:        cfg.TodayTopK,
	})
	if err != nil {
		logger.Fatal("Creating pipeline", "error", err)
	}

	insights := loadInsights(ctx, logger, store, opts.Workspace, opts.User)

	out, err := pipeline.Run(ctx, curation.RunInput{
		WorkspaceID: opts.Workspace,
		Target:      opts.User,
		Language:    memory.NormalizeLanguage(opts.Language),
		Messages:    messages,
		Insights:    insights,
	})
	if err != nil {
		logger.Fatal("Curation run failed", "error", err)
	}

	// Persist the run's output contract: survivors replace-by-id, losers
	// get deleted.
	if err := store.StoreBatch(ctx, out.Memories); err != nil {
		logger.Error("Storing curated memories", "error", err)
	}
	if len(out.DeletedMemoryIDs) > 0 {
		if err := store.Delete(ctx, out.DeletedMemoryIDs); err != nil {
			logger.Error("Deleting superseded memories", "error", err)
		}
	}

	logger.Info("Done", "memories", len(out.Memories), "deleted", len(out.DeletedMemoryIDs))
	for _, m := range out.Memories {
		logger.Info("Memory", "id", m.ID, "type", m.Metadata[memory.MetaMemoryType], "content", m.Content)
	}
}

func loadTranscript(path string) ([]memory.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []transcriptMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	messages := make([]memory.Message, len(raw))
	for i, msg := range raw {
		messages[i] = memory.Message{
			Role:        msg.Role,
			Content:     msg.Content,
			TimeCreated: msg.Time,
			Metadata:    msg.Metadata,
		}
	}
	return messages, nil
}

// loadInsights pulls the user's stored insights; starting without them is
// fine for a first run.
func loadInsights(ctx context.Context, logger *log.Logger, store *vectorstore.WeaviateStore, workspaceID, user string) []memory.Memory {
	records, err := store.Search(ctx, "user profile insights", workspaceID, 50, map[string]string{
		vectorstore.FilterMemoryType: curation.MemoryTypeInsight,
		vectorstore.FilterTarget:     user,
	})
	if err != nil {
		logger.Warn("Loading insights failed, starting with none", "error", err)
		return nil
	}

	var insights []memory.Memory
	for _, rec := range records {
		m, err := vectorstore.MemoryFromRecord(rec)
		if err != nil {
			logger.Warn("Dropping unconvertible insight record", "id", rec.ID, "error", err)
			continue
		}
		insights = append(insights, m)
	}
	return insights
}
