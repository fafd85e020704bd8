package curation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

// ExtractObservations turns filtered messages into candidate fact
// records via one oracle call. An unavailable oracle or an empty reply
// yields an empty observation list, not an error; the only errors are
// programming-contract violations (an unknown prompt template).
func (p *Pipeline) ExtractObservations(ctx context.Context, msgs []memory.Message, in RunInput, timeAware bool) ([]memory.Memory, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	templateName := PromptObservation
	observationType := ObservationPlain
	if timeAware {
		templateName = PromptObservationTime
		observationType = ObservationTimeAware
	}

	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		if timeAware {
			lines[i] = fmt.Sprintf("%d %s %s: %s", i+1, msg.TimeCreated.Format("2006-01-02 15:04"), in.Target, msg.Content)
		} else {
			lines[i] = fmt.Sprintf("%d %s: %s", i+1, in.Target, msg.Content)
		}
	}

	prompt, err := p.prompts.Format(templateName, map[string]string{
		"user_name": in.Target,
		"num_msgs":  strconv.Itoa(len(msgs)),
		"messages":  enumerate(lines),
	})
	if err != nil {
		return nil, err
	}

	reply, err := p.chat(ctx, prompt)
	if err != nil {
		p.logger.Warn("Observation extraction oracle failed, returning no observations",
			"variant", observationType, "error", err)
		return nil, nil
	}
	if strings.TrimSpace(reply) == "" {
		return nil, nil
	}

	var observations []memory.Memory
	for _, rec := range parseObservationLines(reply, timeAware, p.logger) {
		// Indices are 1-based in the prompt; validate the 0-based position.
		if rec.Index-1 >= len(msgs) {
			p.logger.Warn("Dropping observation with out-of-range index",
				"index", rec.Index, "messages", len(msgs))
			continue
		}
		if isNoneMarker(rec.Content) {
			continue
		}

		obs := memory.NewMemory(in.WorkspaceID, in.Target, p.completionsModel, rec.Content)
		obs.Keywords = rec.Keywords
		obs.Metadata[memory.MetaObservationType] = observationType
		obs.Metadata[memory.MetaMemoryType] = MemoryTypePersonal
		if timeAware && rec.TimeInfo != "" {
			obs.Metadata[memory.MetaTimeInfo] = rec.TimeInfo
		}
		observations = append(observations, obs)
	}

	p.logger.Debug("Extracted observations", "variant", observationType,
		"messages", len(msgs), "observations", len(observations))
	return observations, nil
}
