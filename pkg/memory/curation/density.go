package curation

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

// TruncateMiddle keeps the head and tail of a long content string and
// drops the middle. half is rounded from maxSize * 0.5, measured in
// runes so multi-byte text is cut cleanly.
func TruncateMiddle(content string, maxSize int) string {
	runes := []rune(content)
	if maxSize <= 0 || len(runes) < maxSize {
		return content
	}
	half := int(math.Round(float64(maxSize) * 0.5))
	if half*2 >= len(runes) {
		return content
	}
	return string(runes[:half]) + string(runes[len(runes)-half:])
}

// FilterHighInformation scores each user message's informational value
// and keeps only those whose score lands in the preserved set. The
// filter is trajectory-agnostic: callers flatten trajectories into one
// message list preserving relative order before calling.
func (p *Pipeline) FilterHighInformation(ctx context.Context, msgs []memory.Message, in RunInput) ([]memory.Memory, error) {
	candidates := lo.Filter(msgs, func(msg memory.Message, _ int) bool {
		return msg.Role == memory.RoleUser && !memory.MemorizedFlag(msg.Metadata)
	})
	if len(candidates) == 0 {
		return nil, nil
	}

	lines := make([]string, len(candidates))
	for i := range candidates {
		candidates[i].Content = TruncateMiddle(candidates[i].Content, p.cfg.DensityMaxSize)
		lines[i] = fmt.Sprintf("%d %s", i+1, candidates[i].Content)
	}

	prompt, err := p.prompts.Format(PromptInfoDensity, map[string]string{
		"user_name": in.Target,
		"num_msgs":  strconv.Itoa(len(candidates)),
		"messages":  enumerate(lines),
	})
	if err != nil {
		return nil, err
	}

	reply, err := p.chat(ctx, prompt)
	if err != nil {
		p.logger.Warn("Density scoring oracle failed, keeping no messages", "error", err)
		return nil, nil
	}

	scores := parseScoreLines(reply, p.logger)
	if len(scores) != len(candidates) {
		p.logger.Warn("Density score count mismatch, proceeding with parsed indices",
			"scored", len(scores), "messages", len(candidates))
	}

	byIndex := make(map[int]string, len(scores))
	for _, s := range scores {
		byIndex[s.Index] = s.Score
	}

	var kept []memory.Memory
	for i, msg := range candidates {
		score, ok := byIndex[i+1]
		if !ok || !lo.Contains(p.cfg.PreservedScores, score) {
			continue
		}

		meta := memory.CopyMetadata(msg.Metadata)
		roleName, _ := meta[memory.MetaRoleName].(string)
		delete(meta, memory.MetaRoleName)

		m := memory.NewMemory(in.WorkspaceID, in.Target, p.completionsModel, msg.Content)
		m.Metadata = memory.MergeMetadata(meta, map[string]any{
			memory.MetaInfoScore:  score,
			memory.MetaMemorized:  true,
			memory.MetaMemoryType: MemoryTypePersonal,
		})
		if roleName != "" {
			m.Metadata[memory.MetaRoleName] = roleName
		}
		kept = append(kept, m)
	}

	p.logger.Debug("Density filter kept messages", "candidates", len(candidates), "kept", len(kept))
	return kept, nil
}
