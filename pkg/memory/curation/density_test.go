package curation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

func TestTruncateMiddle(t *testing.T) {
	content := "abcdefghijklmnopqrst" // length 20

	got := TruncateMiddle(content, 10)
	assert.Equal(t, "abcde"+"pqrst", got)
	assert.Equal(t, content[:5]+content[len(content)-5:], got)

	// Below the bound nothing changes.
	assert.Equal(t, "short", TruncateMiddle("short", 10))

	// Multi-byte content is cut on rune boundaries.
	zh := strings.Repeat("喜", 20)
	assert.Equal(t, strings.Repeat("喜", 10), TruncateMiddle(zh, 10))
}

func densityConfig() Config {
	cfg := DefaultConfig()
	cfg.DensityMaxSize = 10
	return cfg
}

func TestFilterHighInformationKeepsPreservedScores(t *testing.T) {
	oracle := &scriptedOracle{Replies: []string{"Result: <1> <0>\nResult: <2> <3>"}}
	p := newTestPipeline(oracle, emptyStore(), DefaultConfig())

	msgs := []memory.Message{
		msg("ok sounds good"),
		msg("I am allergic to peanuts"),
	}
	kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "I am allergic to peanuts", kept[0].Content)
	assert.Equal(t, "3", kept[0].Metadata[memory.MetaInfoScore])
	assert.Equal(t, true, kept[0].Metadata[memory.MetaMemorized])
}

func TestFilterHighInformationLanguageFormEquivalence(t *testing.T) {
	msgs := []memory.Message{msg("one"), msg("two")}

	for _, reply := range []string{"Result: <2> <3>", "结果：<2> <3>"} {
		oracle := &scriptedOracle{Replies: []string{reply}}
		p := newTestPipeline(oracle, emptyStore(), DefaultConfig())

		kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
		require.NoError(t, err)
		require.Len(t, kept, 1, "reply %q", reply)
		assert.Equal(t, "two", kept[0].Content)
	}
}

func TestFilterHighInformationDropsMemorizedAndNonUser(t *testing.T) {
	oracle := &scriptedOracle{Replies: []string{"Result: <1> <3>"}}
	p := newTestPipeline(oracle, emptyStore(), DefaultConfig())

	msgs := []memory.Message{
		{Role: memory.RoleAssistant, Content: "assistant reply"},
		{Role: memory.RoleUser, Content: "already stored", Metadata: map[string]any{memory.MetaMemorized: true}},
		{Role: memory.RoleUser, Content: "fresh user message"},
	}
	kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "fresh user message", kept[0].Content)
	require.Len(t, oracle.Prompts, 1)
	assert.NotContains(t, oracle.Prompts[0], "assistant reply")
	assert.NotContains(t, oracle.Prompts[0], "already stored")
}

func TestFilterHighInformationTruncatesLongMessages(t *testing.T) {
	oracle := &scriptedOracle{Replies: []string{"Result: <1> <3>"}}
	p := newTestPipeline(oracle, emptyStore(), densityConfig())

	long := "abcdefghijklmnopqrst"
	msgs := []memory.Message{msg(long)}
	kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "abcdepqrst", kept[0].Content)
	require.Len(t, oracle.Prompts, 1)
	assert.Contains(t, oracle.Prompts[0], "1 abcdepqrst")
}

func TestFilterHighInformationCountMismatchProceeds(t *testing.T) {
	// Two messages, one score: mismatch is logged but the parsed index is
	// still honored.
	oracle := &scriptedOracle{Replies: []string{"Result: <2> <2>"}}
	p := newTestPipeline(oracle, emptyStore(), DefaultConfig())

	msgs := []memory.Message{msg("one"), msg("two")}
	kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "two", kept[0].Content)
}

func TestFilterHighInformationConsumesRoleName(t *testing.T) {
	oracle := &scriptedOracle{Replies: []string{"Result: <1> <2>"}}
	p := newTestPipeline(oracle, emptyStore(), DefaultConfig())

	msgs := []memory.Message{{
		Role:    memory.RoleUser,
		Content: "I work nights",
		Metadata: map[string]any{
			memory.MetaRoleName: "alice",
			"thread":            "t-42",
		},
	}}
	kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "alice", kept[0].Metadata[memory.MetaRoleName])
	assert.Equal(t, "t-42", kept[0].Metadata["thread"])
	// Original message metadata is not mutated.
	assert.Equal(t, "alice", msgs[0].Metadata[memory.MetaRoleName])
}

func TestFilterHighInformationOracleFailureKeepsNothing(t *testing.T) {
	oracle := &scriptedOracle{}
	p := newTestPipeline(oracle, emptyStore(), DefaultConfig())

	msgs := []memory.Message{msg("hello")}
	kept, err := p.FilterHighInformation(context.Background(), msgs, testInput(msgs...))
	require.NoError(t, err)
	assert.Empty(t, kept)
}
