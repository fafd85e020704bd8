package curation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

// SortForComparison orders memories most-recent-first with a stable
// tie-break, so truncation keeps the freshest entries in the prompt.
func SortForComparison(memories []memory.Memory) []memory.Memory {
	ordered := make([]memory.Memory, len(memories))
	copy(ordered, memories)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeCreated.After(ordered[j].TimeCreated)
	})
	return ordered
}

// ResolveShortHorizon merges the freshly extracted observations with
// today's stored memories and deletes contradicted or contained entries.
// Memories past the comparison bound are conservatively kept without
// being judged. A no-match or failed oracle reply keeps everything.
func (p *Pipeline) ResolveShortHorizon(ctx context.Context, in RunInput, pool []memory.Memory) ([]memory.Memory, []string, error) {
	if len(pool) == 0 {
		return nil, nil, nil
	}

	ordered := SortForComparison(pool)
	head := ordered
	if len(head) > p.cfg.ConflictMaxCount {
		head = ordered[:p.cfg.ConflictMaxCount]
	}
	if len(head) <= 1 {
		return ordered, nil, nil
	}

	judgments, err := p.judgeConflicts(ctx, in, head, PromptConflictShort)
	if err != nil {
		return nil, nil, err
	}
	if judgments == nil {
		return ordered, nil, nil
	}

	removal := make(map[int]bool)
	for _, j := range judgments {
		if j.Index > len(head) {
			p.logger.Warn("Ignoring judgment with out-of-range index", "index", j.Index, "memories", len(head))
			continue
		}
		if j.Verdict == VerdictContradiction || j.Verdict == VerdictContained {
			removal[j.Index] = true
		}
	}

	var survivors []memory.Memory
	var deletedIDs []string
	for i, m := range head {
		if removal[i+1] {
			deletedIDs = append(deletedIDs, m.ID)
			p.logger.Debug("Removing conflicted memory", "id", m.ID)
			continue
		}
		survivors = append(survivors, m)
	}
	survivors = append(survivors, ordered[len(head):]...)

	return survivors, deletedIDs, nil
}

// ResolveLongHorizon re-runs conflict detection over the updated
// insights. Unlike the short-horizon pass, a contradiction may be
// resolved by an in-place content rewrite instead of deletion. Any index
// the oracle never judged is conservatively kept and counted in a
// warning.
func (p *Pipeline) ResolveLongHorizon(ctx context.Context, in RunInput, insights []memory.Memory) ([]memory.Memory, []string, error) {
	if len(insights) == 0 {
		return nil, nil, nil
	}

	ordered := SortForComparison(insights)
	head := ordered
	if len(head) > p.cfg.ConflictMaxCount {
		head = ordered[:p.cfg.ConflictMaxCount]
	}
	if len(head) <= 1 {
		return ordered, nil, nil
	}

	judgments, err := p.judgeConflicts(ctx, in, head, PromptConflictLong)
	if err != nil {
		return nil, nil, err
	}
	if judgments == nil {
		return ordered, nil, nil
	}

	byIndex := make(map[int]Judgment, len(judgments))
	for _, j := range judgments {
		if j.Index > len(head) {
			p.logger.Warn("Ignoring judgment with out-of-range index", "index", j.Index, "insights", len(head))
			continue
		}
		byIndex[j.Index] = j
	}

	now := time.Now()
	var survivors []memory.Memory
	var deletedIDs []string
	unmatched := 0

	for i, insight := range head {
		j, ok := byIndex[i+1]
		if !ok {
			unmatched++
			survivors = append(survivors, insight)
			continue
		}

		switch {
		case j.Verdict == VerdictContradiction && j.Replacement != "":
			insight.Content = j.Replacement
			insight.Metadata = memory.MergeMetadata(insight.Metadata, map[string]any{
				memory.MetaModifiedBy: p.completionsModel,
			})
			insight.Touch(now)
			survivors = append(survivors, insight)
		case j.Verdict == VerdictContradiction || j.Verdict == VerdictContained:
			deletedIDs = append(deletedIDs, insight.ID)
			p.logger.Debug("Removing conflicted insight", "id", insight.ID, "verdict", j.Verdict)
		default:
			survivors = append(survivors, insight)
		}
	}
	survivors = append(survivors, ordered[len(head):]...)

	if unmatched > 0 {
		p.logger.Warn("Oracle left insights unjudged, keeping them", "unjudged", unmatched, "judged", len(byIndex))
	}

	return survivors, deletedIDs, nil
}

// judgeConflicts issues one conflict-judgment oracle call over the
// enumerated memories. A nil, nil return means the oracle was unable to
// answer and the caller should keep everything.
func (p *Pipeline) judgeConflicts(ctx context.Context, in RunInput, memories []memory.Memory, templateName string) ([]Judgment, error) {
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = fmt.Sprintf("%d %s", i+1, m.Content)
	}

	prompt, err := p.prompts.Format(templateName, map[string]string{
		"user_name": in.Target,
		"num_obs":   strconv.Itoa(len(memories)),
		"memories":  enumerate(lines),
	})
	if err != nil {
		return nil, err
	}

	reply, err := p.chat(ctx, prompt)
	if err != nil {
		p.logger.Warn("Conflict oracle failed, keeping all memories", "template", templateName, "error", err)
		return nil, nil
	}

	judgments := parseJudgmentLines(reply, p.logger)
	if len(judgments) == 0 {
		p.logger.Warn("Conflict reply matched no judgment lines, keeping all memories", "template", templateName)
		return nil, nil
	}
	return judgments, nil
}
