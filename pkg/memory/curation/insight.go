package curation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

// ReflectionSubjectScore is the relevance assigned when an insight and
// an observation share the same non-empty reflection subject, trumping
// any lexical overlap.
const ReflectionSubjectScore = 0.9

// Relevance links an insight to the observations that support updating
// it. Index is the insight's position in the input list.
type Relevance struct {
	Index      int
	Insight    memory.Memory
	Score      float64
	Supporting []memory.Memory
}

// JaccardSimilarity is intersection over union of the lower-cased
// whitespace-tokenized contents; 0 when the union is empty.
func JaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, token := range strings.Fields(strings.ToLower(s)) {
		set[token] = true
	}
	return set
}

// RelevanceScore scores an insight/observation pair: a shared non-empty
// reflection subject scores 0.9 outright, otherwise the content Jaccard
// similarity.
func RelevanceScore(insight, observation memory.Memory) float64 {
	if insight.ReflectionSubject != "" && insight.ReflectionSubject == observation.ReflectionSubject {
		return ReflectionSubjectScore
	}
	return JaccardSimilarity(insight.Content, observation.Content)
}

// RankInsights selects the insights worth rewriting. An insight
// qualifies when at least one observation meets the threshold; its score
// is the maximum over qualifying observations and its supporting set is
// every observation at or above the threshold, in observation order.
// Qualifying insights are sorted by score descending with a stable
// tie-break and capped at maxCount.
func RankInsights(insights, observations []memory.Memory, threshold float64, maxCount int) []Relevance {
	var ranked []Relevance
	for i, insight := range insights {
		rel := Relevance{Index: i, Insight: insight}
		for _, obs := range observations {
			score := RelevanceScore(insight, obs)
			if score < threshold {
				continue
			}
			rel.Supporting = append(rel.Supporting, obs)
			if score > rel.Score {
				rel.Score = score
			}
		}
		if len(rel.Supporting) > 0 {
			ranked = append(ranked, rel)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if maxCount > 0 && len(ranked) > maxCount {
		ranked = ranked[:maxCount]
	}
	return ranked
}

// UpdateInsights rewrites the insights most relevant to the confirmed
// observation pool. Each rewrite is one oracle call; a failed call or a
// reply that parses to nothing new leaves that insight untouched
// (fail-safe per item, not per batch). An updated insight reuses its
// memory id — downstream stores must treat it as a replace-by-id.
func (p *Pipeline) UpdateInsights(ctx context.Context, in RunInput, insights, observations []memory.Memory) ([]memory.Memory, error) {
	result := make([]memory.Memory, len(insights))
	copy(result, insights)
	if len(insights) == 0 || len(observations) == 0 {
		return result, nil
	}

	ranked := RankInsights(insights, observations, p.cfg.InsightThreshold, p.cfg.InsightMaxCount)
	p.logger.Debug("Ranked insights for update", "qualifying", len(ranked), "insights", len(insights))

	for _, rel := range ranked {
		updated, err := p.updateOneInsight(ctx, in, rel)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			result[rel.Index] = *updated
		}
	}

	return result, nil
}

// updateOneInsight returns nil when the insight should stay unchanged.
func (p *Pipeline) updateOneInsight(ctx context.Context, in RunInput, rel Relevance) (*memory.Memory, error) {
	insight := rel.Insight

	texts := make([]string, len(rel.Supporting))
	for i, obs := range rel.Supporting {
		texts[i] = obs.Content
	}

	prompt, err := p.prompts.Format(PromptInsightUpdate, map[string]string{
		"user_name":    in.Target,
		"subject":      insight.ReflectionSubject,
		"insight":      insight.Content,
		"observations": enumerate(texts),
	})
	if err != nil {
		return nil, err
	}

	reply, err := p.chat(ctx, prompt)
	if err != nil {
		p.logger.Warn("Insight update oracle failed, keeping insight unchanged",
			"id", insight.ID, "error", err)
		return nil, nil
	}

	content, ok := parseProfileReply(reply, in.Target)
	if !ok {
		p.logger.Warn("Insight reply matched no profile line or bracket, keeping insight unchanged",
			"id", insight.ID)
		return nil, nil
	}
	if isNoneMarker(content) || content == insight.Content {
		return nil, nil
	}

	updated := insight
	updated.Content = content
	updated.Metadata = memory.MergeMetadata(memory.CopyMetadata(insight.Metadata), map[string]any{
		memory.MetaOriginalContent: insight.Content,
		memory.MetaUpdateReason:    fmt.Sprintf("merged %d related observations", len(rel.Supporting)),
	})
	updated.Touch(time.Now())

	p.logger.Debug("Updated insight", "id", insight.ID, "score", rel.Score,
		"supporting", len(rel.Supporting))
	return &updated, nil
}
