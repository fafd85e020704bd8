// Package curation turns a raw stream of chat messages into a small set
// of durable, deduplicated, contradiction-free memories about a user and
// keeps longer-lived insights synchronized with newly observed facts.
//
// The pipeline is strictly sequential: splitter, observation extraction,
// information-density filtering, same-day dedup context loading,
// short-horizon conflict resolution, insight updating, and long-horizon
// conflict resolution. Each stage makes at most one oracle call at a
// time and holds no state between runs, so independent runs for
// different users or workspaces may execute concurrently.
package curation

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/pkg/errors"

	"github.com/mnemoshard/mnemo/pkg/ai"
	"github.com/mnemoshard/mnemo/pkg/memory"
	"github.com/mnemoshard/mnemo/pkg/memory/vectorstore"
)

// Memory-type role tags.
const (
	MemoryTypePersonal = "personal"
	MemoryTypeInsight  = "insight"
)

// Observation variants.
const (
	ObservationPlain     = "plain"
	ObservationTimeAware = "time_aware"
)

// Config carries the pipeline tunables.
type Config struct {
	// ConflictMaxCount bounds the prompt size of both conflict resolvers.
	ConflictMaxCount int
	// InsightMaxCount is how many top-scoring insights get rewritten per run.
	InsightMaxCount int
	// InsightThreshold is the minimum relevance for an observation to
	// support an insight.
	InsightThreshold float64
	// DensityMaxSize is the content length (in runes) at which the density
	// filter truncates a message to its head and tail.
	DensityMaxSize int
	// PreservedScores are the density scores worth keeping.
	PreservedScores []string
	// TodayTopK bounds the same-day dedup context lookup.
	TodayTopK int
}

func DefaultConfig() Config {
	return Config{
		ConflictMaxCount: 50,
		InsightMaxCount:  5,
		InsightThreshold: 0.3,
		DensityMaxSize:   2000,
		PreservedScores:  []string{"2", "3"},
		TodayTopK:        30,
	}
}

// Dependencies holds the external capabilities a Pipeline needs. The
// oracle and store must be safe for concurrent use by their own
// contract; the pipeline itself holds no locks.
type Dependencies struct {
	Logger           *log.Logger
	Completions      ai.Completion
	CompletionsModel string
	Store            vectorstore.Store
	Prompts          *PromptLibrary
	TimeWords        TimeWordDetector
}

// Pipeline runs the memory curation stages for one workspace/user pair
// per call.
type Pipeline struct {
	logger           *log.Logger
	completions      ai.Completion
	completionsModel string
	store            vectorstore.Store
	prompts          *PromptLibrary
	timeWords        TimeWordDetector
	cfg              Config
}

// NewPipeline validates the dependencies and builds a Pipeline.
func NewPipeline(deps Dependencies, cfg Config) (*Pipeline, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if deps.Completions == nil {
		return nil, errors.New("completions service cannot be nil")
	}
	if deps.CompletionsModel == "" {
		return nil, errors.New("completions model cannot be empty")
	}
	if deps.Store == nil {
		return nil, errors.New("vector store cannot be nil")
	}
	if deps.Prompts == nil {
		deps.Prompts = NewPromptLibrary()
	}
	if deps.TimeWords == nil {
		deps.TimeWords = DefaultTimeWordDetector
	}
	if cfg.ConflictMaxCount <= 0 {
		cfg.ConflictMaxCount = DefaultConfig().ConflictMaxCount
	}
	if cfg.TodayTopK <= 0 {
		cfg.TodayTopK = DefaultConfig().TodayTopK
	}
	if len(cfg.PreservedScores) == 0 {
		cfg.PreservedScores = DefaultConfig().PreservedScores
	}

	return &Pipeline{
		logger:           deps.Logger,
		completions:      deps.Completions,
		completionsModel: deps.CompletionsModel,
		store:            deps.Store,
		prompts:          deps.Prompts,
		timeWords:        deps.TimeWords,
		cfg:              cfg,
	}, nil
}

// RunInput is one curation request: the message batch plus the insights
// currently on file for the target user.
type RunInput struct {
	WorkspaceID string
	Target      string
	Language    memory.Language
	Messages    []memory.Message
	Insights    []memory.Memory
}

// RunOutput is the persisted-output contract: the ordered surviving
// memory list (observations first, then insights) and the ids whose
// deletion the service layer must carry out. The pipeline itself never
// writes to storage; its only storage access is the read path of the
// same-day loader.
type RunOutput struct {
	Memories         []memory.Memory
	DeletedMemoryIDs []string
}

// Run executes one full curation pass. Malformed oracle output never
// fails a run; only an input contract violation does.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (RunOutput, error) {
	if err := validateInput(in); err != nil {
		return RunOutput{}, err
	}
	lang := memory.NormalizeLanguage(string(in.Language))

	timed, plain := SplitMessages(in.Messages, lang, p.timeWords)
	p.logger.Debug("Split messages", "time_bearing", len(timed), "plain", len(plain))

	plainObs, err := p.ExtractObservations(ctx, plain, in, false)
	if err != nil {
		return RunOutput{}, err
	}
	timedObs, err := p.ExtractObservations(ctx, timed, in, true)
	if err != nil {
		return RunOutput{}, err
	}

	dense, err := p.FilterHighInformation(ctx, in.Messages, in)
	if err != nil {
		return RunOutput{}, err
	}

	todays := p.LoadTodayMemories(ctx, in)

	pool := make([]memory.Memory, 0, len(plainObs)+len(timedObs)+len(todays))
	pool = append(pool, plainObs...)
	pool = append(pool, timedObs...)
	pool = append(pool, todays...)

	confirmed, deletedIDs, err := p.ResolveShortHorizon(ctx, in, pool)
	if err != nil {
		return RunOutput{}, err
	}
	confirmed = append(confirmed, dense...)

	insights, err := p.UpdateInsights(ctx, in, in.Insights, confirmed)
	if err != nil {
		return RunOutput{}, err
	}

	insights, insightDeleted, err := p.ResolveLongHorizon(ctx, in, insights)
	if err != nil {
		return RunOutput{}, err
	}
	deletedIDs = append(deletedIDs, insightDeleted...)

	memories := make([]memory.Memory, 0, len(confirmed)+len(insights))
	memories = append(memories, confirmed...)
	for _, insight := range insights {
		if _, ok := insight.Metadata[memory.MetaMemoryType]; !ok {
			insight.Metadata = memory.MergeMetadata(insight.Metadata, map[string]any{
				memory.MetaMemoryType: MemoryTypeInsight,
			})
		}
		memories = append(memories, insight)
	}

	p.logger.Info("Curation run complete",
		"workspace", in.WorkspaceID,
		"target", in.Target,
		"memories", len(memories),
		"deleted", len(deletedIDs))

	return RunOutput{Memories: memories, DeletedMemoryIDs: deletedIDs}, nil
}

// validateInput enforces the input contract. Violations are fatal and
// produce no partial result.
func validateInput(in RunInput) error {
	if in.WorkspaceID == "" {
		return errors.New("workspace id cannot be empty")
	}
	if in.Target == "" {
		return errors.New("target user cannot be empty")
	}
	for i, msg := range in.Messages {
		if !memory.KnownRole(msg.Role) {
			return errors.Errorf("message %d has unrecognized role %q", i, msg.Role)
		}
	}
	for i, insight := range in.Insights {
		if insight.ID == "" {
			return errors.Errorf("insight %d has no memory id", i)
		}
	}
	return nil
}

// chat issues one oracle call and returns the raw reply text. Parsing
// and fallback live with the caller.
func (p *Pipeline) chat(ctx context.Context, prompt string) (string, error) {
	msg, err := p.completions.Completions(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}, p.completionsModel)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func enumerate(lines []string) string {
	return strings.Join(lines, "\n")
}
