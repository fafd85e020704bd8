package curation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreLinesLanguageEquivalence(t *testing.T) {
	logger := testLogger()

	en := parseScoreLines("Result: <2> <3>", logger)
	zh := parseScoreLines("结果：<2> <3>", logger)

	require.Len(t, en, 1)
	assert.Equal(t, 2, en[0].Index)
	assert.Equal(t, "3", en[0].Score)
	assert.Equal(t, en, zh)
}

func TestParseScoreLinesSkipsBadIndices(t *testing.T) {
	text := "Result: <x> <3>\nResult: <0> <2>\nresult: <4> <1>\nchatter\n"
	scores := parseScoreLines(text, testLogger())

	require.Len(t, scores, 1)
	assert.Equal(t, 4, scores[0].Index)
	assert.Equal(t, "1", scores[0].Score)
}

func TestParseObservationLinesPlain(t *testing.T) {
	text := `Some preamble the model added.
Information: <1> <alice lives in Lisbon> <Lisbon, home>
信息：<2> <alice owns a cat> <cat, pet>
Information: <oops> <broken index> <k>
not a grammar line`

	records := parseObservationLines(text, false, testLogger())

	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Index)
	assert.Equal(t, "alice lives in Lisbon", records[0].Content)
	assert.Equal(t, "Lisbon, home", records[0].Keywords)
	assert.Equal(t, 2, records[1].Index)
	assert.Equal(t, "alice owns a cat", records[1].Content)
}

func TestParseObservationLinesTimeAware(t *testing.T) {
	text := "Information: <3> <next Friday> <alice flies to Tokyo> <Tokyo, travel>"

	records := parseObservationLines(text, true, testLogger())

	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Index)
	assert.Equal(t, "next Friday", records[0].TimeInfo)
	assert.Equal(t, "alice flies to Tokyo", records[0].Content)
	assert.Equal(t, "Tokyo, travel", records[0].Keywords)
}

func TestIsNoneMarker(t *testing.T) {
	for _, marker := range []string{"无", "none", "NONE", " None ", "", "  ", "repeat", "Repeat"} {
		assert.True(t, isNoneMarker(marker), "marker %q", marker)
	}
	assert.False(t, isNoneMarker("likes tea"))
}

func TestParseJudgmentLines(t *testing.T) {
	text := `Judgment: <1> <contradiction>
判断：<2> <被包含>
Judgment: <3> <none>
Judgment: <4> <maybe>
Judgment: <-1> <none>`

	judgments := parseJudgmentLines(text, testLogger())

	require.Len(t, judgments, 3)
	assert.Equal(t, Judgment{Index: 1, Verdict: VerdictContradiction}, judgments[0])
	assert.Equal(t, Judgment{Index: 2, Verdict: VerdictContained}, judgments[1])
	assert.Equal(t, Judgment{Index: 3, Verdict: VerdictNone}, judgments[2])
}

func TestParseJudgmentLinesWithReplacement(t *testing.T) {
	text := `Judgment: <1> <contradiction> <alice drank coffee until March>
判断：<2> <矛盾> <>
Judgment: <3> <none> <ignored text>`

	judgments := parseJudgmentLines(text, testLogger())

	require.Len(t, judgments, 3)
	assert.Equal(t, "alice drank coffee until March", judgments[0].Replacement)
	assert.Equal(t, VerdictContradiction, judgments[1].Verdict)
	assert.Empty(t, judgments[1].Replacement)
	assert.Equal(t, "ignored text", judgments[2].Replacement)
}

func TestParseVerdictCaseInsensitive(t *testing.T) {
	v, ok := parseVerdict(" CONTRADICTION ")
	require.True(t, ok)
	assert.Equal(t, VerdictContradiction, v)

	_, ok = parseVerdict("unsure")
	assert.False(t, ok)
}

func TestParseProfileReplyStrictLine(t *testing.T) {
	reply := `Thinking about it...
alice's profile: <alice enjoys tea and coffee>
trailing commentary`

	content, ok := parseProfileReply(reply, "alice")
	require.True(t, ok)
	assert.Equal(t, "alice enjoys tea and coffee", content)
}

func TestParseProfileReplyChineseLine(t *testing.T) {
	content, ok := parseProfileReply("alice的资料: alice 喜欢喝茶", "alice")
	require.True(t, ok)
	assert.Equal(t, "alice 喜欢喝茶", content)
}

func TestParseProfileReplyBracketFallback(t *testing.T) {
	reply := `The model rambled <first guess> for a while
and finally settled on <alice prefers oat milk>.`

	content, ok := parseProfileReply(reply, "alice")
	require.True(t, ok)
	assert.Equal(t, "alice prefers oat milk", content)
}

func TestParseProfileReplyNoMatch(t *testing.T) {
	_, ok := parseProfileReply("nothing useful here", "alice")
	assert.False(t, ok)
}
