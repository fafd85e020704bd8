// Package vectorstore provides the persistence capability used by the
// curation pipeline: metadata-filtered semantic search plus deletion,
// backed by Weaviate.
package vectorstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/mnemoshard/mnemo/pkg/ai"
	"github.com/mnemoshard/mnemo/pkg/memory"
)

const (
	ClassName = "AgentMemory"

	contentProperty           = "content"
	keywordsProperty          = "keywords"
	targetProperty            = "target"
	authorProperty            = "author"
	workspaceProperty         = "workspaceId"
	reflectionSubjectProperty = "reflectionSubject"
	memoryTypeProperty        = "memoryType"
	createdDateProperty       = "createdDate"
	metadataProperty          = "metadataJson"
	timeCreatedProperty       = "timeCreated"
	timeModifiedProperty      = "timeModified"
)

// Filter keys accepted by Search. Unknown keys are rejected so a typo in
// a caller does not silently widen a query.
const (
	FilterMemoryType  = "memory_type"
	FilterTarget      = "target"
	FilterCreatedDate = "created_date"
)

var filterProperties = map[string]string{
	FilterMemoryType:  memoryTypeProperty,
	FilterTarget:      targetProperty,
	FilterCreatedDate: createdDateProperty,
}

// Record is one raw search hit. Conversion into a Memory happens at the
// caller so per-record failures can be dropped without aborting a batch.
type Record struct {
	ID         string
	Properties map[string]any
}

// Store is the vector-store capability the pipeline depends on.
type Store interface {
	Search(ctx context.Context, query string, workspaceID string, topK int, filterDict map[string]string) ([]Record, error)
	Delete(ctx context.Context, ids []string) error
}

// WeaviateStore implements Store against a Weaviate instance, embedding
// queries through the injected embeddings service.
type WeaviateStore struct {
	client          *weaviate.Client
	logger          *log.Logger
	embeddings      ai.Embedding
	embeddingsModel string
}

var _ Store = (*WeaviateStore)(nil)

func New(client *weaviate.Client, logger *log.Logger, embeddings ai.Embedding, embeddingsModel string) *WeaviateStore {
	return &WeaviateStore{
		client:          client,
		logger:          logger,
		embeddings:      embeddings,
		embeddingsModel: embeddingsModel,
	}
}

// EnsureSchemaExists creates the memory class if it is missing.
func (s *WeaviateStore) EnsureSchemaExists(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(ClassName).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "checking class existence")
	}
	if exists {
		return nil
	}

	classObj := &models.Class{
		Class:       ClassName,
		Description: "A curated memory record (observation or insight)",
		Properties: []*models.Property{
			{Name: contentProperty, DataType: []string{"text"}, Description: "The memory content"},
			{Name: keywordsProperty, DataType: []string{"text"}, Description: "When-to-use keywords"},
			{Name: targetProperty, DataType: []string{"text"}, Description: "Subject user of the memory"},
			{Name: authorProperty, DataType: []string{"text"}, Description: "Model or system that produced the memory"},
			{Name: workspaceProperty, DataType: []string{"text"}, Description: "Owning workspace"},
			{Name: reflectionSubjectProperty, DataType: []string{"text"}, Description: "Grouping subject for insights"},
			{Name: memoryTypeProperty, DataType: []string{"text"}, Description: "Role tag, e.g. personal or insight"},
			{Name: createdDateProperty, DataType: []string{"text"}, Description: "Creation date, YYYY-MM-DD local"},
			{Name: metadataProperty, DataType: []string{"text"}, Description: "JSON-encoded free-form metadata"},
			{Name: timeCreatedProperty, DataType: []string{"date"}, Description: "Creation timestamp"},
			{Name: timeModifiedProperty, DataType: []string{"date"}, Description: "Last modification timestamp"},
		},
		Vectorizer: "none",
	}

	if err := s.client.Schema().ClassCreator().WithClass(classObj).Do(ctx); err != nil {
		return errors.Wrap(err, "creating memory schema")
	}

	s.logger.Info("Memory schema created", "class", ClassName)
	return nil
}

// Search embeds the query and runs a filtered nearVector lookup.
func (s *WeaviateStore) Search(ctx context.Context, query string, workspaceID string, topK int, filterDict map[string]string) ([]Record, error) {
	vector, err := s.embeddings.Embedding(ctx, query, s.embeddingsModel)
	if err != nil {
		return nil, errors.Wrap(err, "embedding query")
	}
	queryVector := make([]float32, len(vector))
	for i, v := range vector {
		queryVector[i] = float32(v)
	}

	where, err := s.buildWhereFilters(workspaceID, filterDict)
	if err != nil {
		return nil, err
	}

	fields := []graphql.Field{
		{Name: contentProperty},
		{Name: keywordsProperty},
		{Name: targetProperty},
		{Name: authorProperty},
		{Name: workspaceProperty},
		{Name: reflectionSubjectProperty},
		{Name: memoryTypeProperty},
		{Name: createdDateProperty},
		{Name: metadataProperty},
		{Name: timeCreatedProperty},
		{Name: timeModifiedProperty},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
		}},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	resp, err := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "executing Weaviate query")
	}
	if len(resp.Errors) > 0 {
		return nil, errors.Errorf("GraphQL query errors: %v", resp.Errors)
	}

	data, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		s.logger.Warn("No 'Get' field in GraphQL response")
		return nil, nil
	}
	classData, ok := data[ClassName].([]any)
	if !ok {
		return nil, nil
	}

	records := make([]Record, 0, len(classData))
	for _, item := range classData {
		props, ok := item.(map[string]any)
		if !ok {
			s.logger.Warn("Retrieved item is not a map, skipping")
			continue
		}

		rec := Record{Properties: props}
		if additional, ok := props["_additional"].(map[string]any); ok {
			rec.ID, _ = additional["id"].(string)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Delete removes the given memory ids. The first failure aborts; callers
// treat deletion as best-effort and may retry on a later run.
func (s *WeaviateStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := s.client.Data().Deleter().
			WithID(id).
			WithClassName(ClassName).
			Do(ctx)
		if err != nil {
			return errors.Wrapf(err, "deleting object %s", id)
		}
	}
	s.logger.Info("Deleted memories", "count", len(ids))
	return nil
}

// StoreBatch persists curated memories, embedding each content string.
// A memory's ID becomes the Weaviate object ID, so storing a memory that
// carries an existing ID replaces it rather than inserting a duplicate.
func (s *WeaviateStore) StoreBatch(ctx context.Context, memories []memory.Memory) error {
	if len(memories) == 0 {
		return nil
	}

	contents := make([]string, len(memories))
	for i, m := range memories {
		contents[i] = m.Content
	}
	vectors, err := s.embeddings.Embeddings(ctx, contents, s.embeddingsModel)
	if err != nil {
		return errors.Wrap(err, "embedding memory contents")
	}
	if len(vectors) != len(memories) {
		return errors.Errorf("embedding count mismatch: %d vectors for %d memories", len(vectors), len(memories))
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for i, m := range memories {
		obj, err := ObjectFromMemory(m)
		if err != nil {
			return err
		}
		vec := make([]float32, len(vectors[i]))
		for j, v := range vectors[i] {
			vec[j] = float32(v)
		}
		obj.Vector = vec
		batcher = batcher.WithObjects(obj)
	}

	result, err := batcher.Do(ctx)
	if err != nil {
		return errors.Wrap(err, "batch storing objects")
	}
	for _, obj := range result {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return errors.Errorf("object error: %s", obj.Result.Errors.Error[0].Message)
		}
	}

	s.logger.Info("Stored memories", "count", len(memories))
	return nil
}

func (s *WeaviateStore) buildWhereFilters(workspaceID string, filterDict map[string]string) (*filters.WhereBuilder, error) {
	whereFilters := []*filters.WhereBuilder{
		filters.Where().
			WithPath([]string{workspaceProperty}).
			WithOperator(filters.Equal).
			WithValueText(workspaceID),
	}

	for key, value := range filterDict {
		property, ok := filterProperties[key]
		if !ok {
			return nil, errors.Errorf("unsupported filter key: %s", key)
		}
		whereFilters = append(whereFilters, filters.Where().
			WithPath([]string{property}).
			WithOperator(filters.Equal).
			WithValueText(value))
	}

	if len(whereFilters) == 1 {
		return whereFilters[0], nil
	}
	return filters.Where().WithOperator(filters.And).WithOperands(whereFilters), nil
}

// ObjectFromMemory builds the Weaviate object for a memory.
func ObjectFromMemory(m memory.Memory) (*models.Object, error) {
	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling metadata")
	}

	memoryType := "personal"
	if t, ok := m.Metadata[memory.MetaMemoryType].(string); ok && t != "" {
		memoryType = t
	}

	return &models.Object{
		Class: ClassName,
		ID:    strfmt.UUID(m.ID),
		Properties: map[string]any{
			contentProperty:           m.Content,
			keywordsProperty:          m.Keywords,
			targetProperty:            m.Target,
			authorProperty:            m.Author,
			workspaceProperty:         m.WorkspaceID,
			reflectionSubjectProperty: m.ReflectionSubject,
			memoryTypeProperty:        memoryType,
			createdDateProperty:       m.TimeCreated.Local().Format("2006-01-02"),
			metadataProperty:          string(metadataJSON),
			timeCreatedProperty:       m.TimeCreated.Format(time.RFC3339),
			timeModifiedProperty:      m.TimeModified.Format(time.RFC3339),
		},
	}, nil
}

// MemoryFromRecord converts one search hit into a Memory. A record with
// no usable content is an error; the caller decides whether that drops
// the record or the batch.
func MemoryFromRecord(rec Record) (memory.Memory, error) {
	content, _ := rec.Properties[contentProperty].(string)
	if content == "" {
		return memory.Memory{}, errors.Errorf("record %s has no content", rec.ID)
	}
	if rec.ID == "" {
		return memory.Memory{}, errors.New("record has no id")
	}

	m := memory.Memory{
		ID:       rec.ID,
		Content:  content,
		Metadata: map[string]any{},
	}
	m.Keywords, _ = rec.Properties[keywordsProperty].(string)
	m.Target, _ = rec.Properties[targetProperty].(string)
	m.Author, _ = rec.Properties[authorProperty].(string)
	m.WorkspaceID, _ = rec.Properties[workspaceProperty].(string)
	m.ReflectionSubject, _ = rec.Properties[reflectionSubjectProperty].(string)

	if metaStr, ok := rec.Properties[metadataProperty].(string); ok && metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &m.Metadata); err != nil {
			return memory.Memory{}, errors.Wrapf(err, "unmarshaling metadata for record %s", rec.ID)
		}
	}
	if memoryType, ok := rec.Properties[memoryTypeProperty].(string); ok && memoryType != "" {
		m.Metadata[memory.MetaMemoryType] = memoryType
	}

	if ts, ok := rec.Properties[timeCreatedProperty].(string); ok {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return memory.Memory{}, errors.Wrapf(err, "parsing timeCreated for record %s", rec.ID)
		}
		m.TimeCreated = parsed
	}
	if ts, ok := rec.Properties[timeModifiedProperty].(string); ok {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return memory.Memory{}, errors.Wrapf(err, "parsing timeModified for record %s", rec.ID)
		}
		m.TimeModified = parsed
	}
	if m.TimeModified.Before(m.TimeCreated) {
		m.TimeModified = m.TimeCreated
	}

	return m, nil
}
