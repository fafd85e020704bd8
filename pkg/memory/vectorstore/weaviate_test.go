package vectorstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

func TestObjectFromMemory(t *testing.T) {
	created := time.Date(2026, 8, 30, 9, 15, 0, 0, time.Local)
	m := memory.Memory{
		ID:           "11111111-2222-3333-4444-555555555555",
		WorkspaceID:  "ws-1",
		Target:       "alice",
		Author:       "gpt-4o-mini",
		Content:      "alice lives in Lisbon",
		Keywords:     "Lisbon, home",
		Metadata:     map[string]any{"observation_type": "plain"},
		TimeCreated:  created,
		TimeModified: created,
	}

	obj, err := ObjectFromMemory(m)
	require.NoError(t, err)

	assert.Equal(t, ClassName, obj.Class)
	assert.Equal(t, m.ID, string(obj.ID))

	props, ok := obj.Properties.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice lives in Lisbon", props[contentProperty])
	assert.Equal(t, "2026-08-30", props[createdDateProperty])
	assert.Equal(t, "personal", props[memoryTypeProperty], "memory type defaults to personal")
	assert.Contains(t, props[metadataProperty], "observation_type")
}

func TestObjectFromMemoryHonorsTypeTag(t *testing.T) {
	m := memory.NewMemory("ws-1", "alice", "system", "profile insight")
	m.Metadata[memory.MetaMemoryType] = "insight"

	obj, err := ObjectFromMemory(m)
	require.NoError(t, err)

	props := obj.Properties.(map[string]any)
	assert.Equal(t, "insight", props[memoryTypeProperty])
}

func TestMemoryFromRecord(t *testing.T) {
	created := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	rec := Record{
		ID: "rec-1",
		Properties: map[string]any{
			contentProperty:           "alice plays chess",
			keywordsProperty:          "chess, games",
			targetProperty:            "alice",
			authorProperty:            "gpt-4o-mini",
			workspaceProperty:         "ws-1",
			reflectionSubjectProperty: "hobbies",
			memoryTypeProperty:        "personal",
			metadataProperty:          `{"info_score":"3"}`,
			timeCreatedProperty:       created.Format(time.RFC3339),
			timeModifiedProperty:      created.Add(time.Hour).Format(time.RFC3339),
		},
	}

	m, err := MemoryFromRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "rec-1", m.ID)
	assert.Equal(t, "alice plays chess", m.Content)
	assert.Equal(t, "hobbies", m.ReflectionSubject)
	assert.Equal(t, "3", m.Metadata["info_score"])
	assert.Equal(t, "personal", m.Metadata[memory.MetaMemoryType])
	assert.True(t, m.TimeCreated.Equal(created))
	assert.True(t, m.TimeModified.Equal(created.Add(time.Hour)))
}

func TestMemoryFromRecordRejectsBadRecords(t *testing.T) {
	_, err := MemoryFromRecord(Record{ID: "rec-1", Properties: map[string]any{}})
	assert.Error(t, err, "missing content")

	_, err = MemoryFromRecord(Record{Properties: map[string]any{contentProperty: "content"}})
	assert.Error(t, err, "missing id")

	_, err = MemoryFromRecord(Record{ID: "rec-1", Properties: map[string]any{
		contentProperty:  "content",
		metadataProperty: "{not json",
	}})
	assert.Error(t, err, "malformed metadata")
}

func TestMemoryFromRecordRepairsModifiedBeforeCreated(t *testing.T) {
	created := time.Now()
	rec := Record{
		ID: "rec-1",
		Properties: map[string]any{
			contentProperty:      "content",
			timeCreatedProperty:  created.Format(time.RFC3339),
			timeModifiedProperty: created.Add(-time.Hour).Format(time.RFC3339),
		},
	}

	m, err := MemoryFromRecord(rec)
	require.NoError(t, err)
	assert.True(t, m.TimeModified.Equal(m.TimeCreated))
}
