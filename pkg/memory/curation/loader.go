package curation

import (
	"context"
	"time"

	"github.com/mnemoshard/mnemo/pkg/memory"
	"github.com/mnemoshard/mnemo/pkg/memory/vectorstore"
)

// todayQuery is the neutral query for the same-day lookup; the metadata
// filters do the real narrowing.
const todayQuery = "memories created today"

// LoadTodayMemories retrieves memories already stored today for the
// target user, used as dedup context by the short-horizon resolver.
// Fail-open: a search failure or an unconvertible record degrades to
// fewer (or no) memories and never blocks the run — the worst case is a
// duplicate that a later pass still catches.
func (p *Pipeline) LoadTodayMemories(ctx context.Context, in RunInput) []memory.Memory {
	today := time.Now().Local().Format("2006-01-02")

	records, err := p.store.Search(ctx, todayQuery, in.WorkspaceID, p.cfg.TodayTopK, map[string]string{
		vectorstore.FilterMemoryType:  MemoryTypePersonal,
		vectorstore.FilterTarget:      in.Target,
		vectorstore.FilterCreatedDate: today,
	})
	if err != nil {
		p.logger.Warn("Today-memory search failed, proceeding without dedup context", "error", err)
		return nil
	}

	memories := make([]memory.Memory, 0, len(records))
	for _, rec := range records {
		m, err := vectorstore.MemoryFromRecord(rec)
		if err != nil {
			p.logger.Warn("Dropping unconvertible memory record", "id", rec.ID, "error", err)
			continue
		}
		memories = append(memories, m)
	}

	p.logger.Debug("Loaded today's memories", "date", today, "count", len(memories))
	return memories
}
