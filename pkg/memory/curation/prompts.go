package curation

import (
	"strings"

	"github.com/pkg/errors"
)

// Prompt template names.
const (
	PromptObservation     = "observation_extraction"
	PromptObservationTime = "observation_extraction_time"
	PromptInfoDensity     = "info_density"
	PromptConflictShort   = "conflict_short"
	PromptConflictLong    = "conflict_long"
	PromptInsightUpdate   = "insight_update"
)

// PromptLibrary renders named prompt templates. Each template is an
// ordered list of segments (system, few-shot, user) joined with blank
// lines; stage logic only supplies variable values and never edits the
// template text.
type PromptLibrary struct {
	templates map[string][]string
}

func NewPromptLibrary() *PromptLibrary {
	return &PromptLibrary{templates: builtinTemplates()}
}

// Format expands {var} placeholders in every segment of the named
// template. An unknown template name is a programming error, not oracle
// noise, and is surfaced immediately.
func (l *PromptLibrary) Format(name string, vars map[string]string) (string, error) {
	segments, ok := l.templates[name]
	if !ok {
		return "", errors.Errorf("unknown prompt template: %s", name)
	}

	expanded := make([]string, 0, len(segments))
	for _, segment := range segments {
		for key, value := range vars {
			segment = strings.ReplaceAll(segment, "{"+key+"}", value)
		}
		expanded = append(expanded, segment)
	}

	return strings.Join(expanded, "\n\n"), nil
}

// Register adds or replaces a template. Deployments with tuned prompts
// override the builtins at startup.
func (l *PromptLibrary) Register(name string, segments []string) {
	l.templates[name] = segments
}

func builtinTemplates() map[string][]string {
	return map[string][]string{
		PromptObservation: {
			`You are a memory assistant. From the numbered chat messages below, extract durable facts about {user_name}.
Reply with one line per fact, in exactly this form (either language form is accepted):
Information: <message index> <fact content> <keywords>
信息：<message index> <fact content> <keywords>
If a message holds no durable fact, use <none> as the content.`,
			`Example:
1 {user_name}: I moved to Lisbon last year and I love surfing.
Information: <1> <{user_name} lives in Lisbon> <Lisbon, home, city>
Information: <1> <{user_name} loves surfing> <surfing, hobby>`,
			`There are {num_msgs} messages from {user_name}:
{messages}
Extract the facts now.`,
		},
		PromptObservationTime: {
			`You are a memory assistant. From the numbered, timestamped chat messages below, extract durable facts about {user_name} together with their time information.
Reply with one line per fact, in exactly this form (either language form is accepted):
Information: <message index> <time info> <fact content> <keywords>
信息：<message index> <time info> <fact content> <keywords>
If a message holds no durable fact, use <none> as the content. Leave the time info empty when the message carries none.`,
			`Example:
1 2024-05-01 09:30 {user_name}: I am flying to Tokyo next Friday.
Information: <1> <next Friday after 2024-05-01> <{user_name} is flying to Tokyo> <Tokyo, travel, flight>`,
			`There are {num_msgs} messages from {user_name}:
{messages}
Extract the facts now.`,
		},
		PromptInfoDensity: {
			`You rate how much durable personal information a chat message carries, on a 0-3 scale:
0 = none, 1 = trivial, 2 = useful, 3 = highly informative.
Reply with one line per message, in exactly this form (either language form is accepted):
Result: <message index> <score>
结果：<message index> <score>`,
			`Example:
1 ok, sounds good
2 I am allergic to peanuts, please remember that
Result: <1> <0>
Result: <2> <3>`,
			`There are {num_msgs} messages from {user_name}:
{messages}
Rate each message now.`,
		},
		PromptConflictShort: {
			`You check a numbered list of memories about {user_name} for conflicts.
For each memory decide whether it contradicts an earlier memory in the list, is contained by another memory, or neither.
Reply with one line per memory, in exactly this form (either language form is accepted):
Judgment: <memory index> <contradiction|contained|none>
判断：<memory index> <矛盾|被包含|无>`,
			`Example:
1 {user_name} lives in Lisbon
2 {user_name} lives in Porto
3 {user_name} lives in Lisbon and works remotely
Judgment: <1> <contained>
Judgment: <2> <contradiction>
Judgment: <3> <none>`,
			`There are {num_obs} memories about {user_name}:
{memories}
Judge each memory now.`,
		},
		PromptConflictLong: {
			`You check a numbered list of long-term insights about {user_name} for conflicts.
For each insight decide whether it contradicts another, is contained by another, or neither.
When an insight contradicts but can be fixed by rewording, supply the corrected text as the third field; leave it empty to delete the insight instead.
Reply with one line per insight, in exactly this form (either language form is accepted):
Judgment: <insight index> <contradiction|contained|none> <corrected text or empty>
判断：<insight index> <矛盾|被包含|无> <corrected text or empty>`,
			`Example:
1 {user_name} drinks coffee every morning
2 {user_name} quit caffeine in March
Judgment: <1> <contradiction> <{user_name} drank coffee daily until quitting caffeine in March>
Judgment: <2> <none> <>`,
			`There are {num_obs} insights about {user_name}:
{memories}
Judge each insight now.`,
		},
		PromptInsightUpdate: {
			`You maintain a profile insight about {user_name} on the subject "{subject}".
Merge the new observations below into the current insight. Keep it one concise paragraph, drop nothing that is still true, and resolve conflicts in favor of the newest observation.
Reply with a single line in exactly this form (either language form is accepted):
{user_name}'s profile: <updated insight>
{user_name}的资料: <updated insight>`,
			`Current insight:
{insight}

New observations:
{observations}

Write the updated insight now.`,
		},
	}
}
