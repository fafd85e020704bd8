package curation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mnemoshard/mnemo/pkg/memory/vectorstore"
)

func storedRecord(id, content string) vectorstore.Record {
	return vectorstore.Record{
		ID: id,
		Properties: map[string]any{
			"content":      content,
			"target":       "alice",
			"workspaceId":  "ws-1",
			"memoryType":   "personal",
			"timeCreated":  time.Now().Format(time.RFC3339),
			"timeModified": time.Now().Format(time.RFC3339),
		},
	}
}

func TestLoadTodayMemoriesFiltersByDate(t *testing.T) {
	store := &MockStore{}
	today := time.Now().Local().Format("2006-01-02")
	store.On("Search", mock.Anything, mock.Anything, "ws-1", 30, map[string]string{
		vectorstore.FilterMemoryType:  MemoryTypePersonal,
		vectorstore.FilterTarget:      "alice",
		vectorstore.FilterCreatedDate: today,
	}).Return([]vectorstore.Record{
		storedRecord("id-1", "alice lives in Lisbon"),
		storedRecord("id-2", "alice plays chess"),
	}, nil)

	p := newTestPipeline(&scriptedOracle{}, store, DefaultConfig())

	memories := p.LoadTodayMemories(context.Background(), testInput())

	require.Len(t, memories, 2)
	assert.Equal(t, "id-1", memories[0].ID)
	assert.Equal(t, "alice lives in Lisbon", memories[0].Content)
	store.AssertExpectations(t)
}

func TestLoadTodayMemoriesDropsUnconvertibleRecords(t *testing.T) {
	store := &MockStore{}
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]vectorstore.Record{
		storedRecord("id-1", "good record"),
		{ID: "id-2", Properties: map[string]any{"content": ""}}, // no content
		{Properties: map[string]any{"content": "no id"}},        // no id
	}, nil)

	p := newTestPipeline(&scriptedOracle{}, store, DefaultConfig())

	memories := p.LoadTodayMemories(context.Background(), testInput())

	require.Len(t, memories, 1)
	assert.Equal(t, "good record", memories[0].Content)
}

func TestLoadTodayMemoriesFailsOpen(t *testing.T) {
	store := &MockStore{}
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("store down"))

	p := newTestPipeline(&scriptedOracle{}, store, DefaultConfig())

	memories := p.LoadTodayMemories(context.Background(), testInput())
	assert.Empty(t, memories)
}
