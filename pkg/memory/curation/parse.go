package curation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// The oracle replies in a bilingual tagged-line grammar. Each grammar is
// a set of equivalent rules over the same record shape, one per language
// form, selected by matching rather than by branching on the language tag.
type lineGrammar struct {
	rules []*regexp.Regexp
}

func (g lineGrammar) match(line string) []string {
	for _, rule := range g.rules {
		if m := rule.FindStringSubmatch(line); m != nil {
			return m[1:]
		}
	}
	return nil
}

var (
	// Information: <index> <time_info> <content> <keywords>
	obsTimeGrammar = lineGrammar{rules: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*information\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>\s*<([^<>]*)>\s*<([^<>]*)>`),
		regexp.MustCompile(`^\s*信息\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>\s*<([^<>]*)>\s*<([^<>]*)>`),
	}}

	// Information: <index> <content> <keywords>
	obsPlainGrammar = lineGrammar{rules: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*information\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>\s*<([^<>]*)>`),
		regexp.MustCompile(`^\s*信息\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>\s*<([^<>]*)>`),
	}}

	// Result: <index> <score>
	scoreGrammar = lineGrammar{rules: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*result\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>`),
		regexp.MustCompile(`^\s*结果\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>`),
	}}

	// Judgment: <index> <verdict> [<replacement>]
	judgmentGrammar = lineGrammar{rules: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*judgment\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>(?:\s*<([^<>]*)>)?`),
		regexp.MustCompile(`^\s*判断\s*[:：]\s*<([^<>]*)>\s*<([^<>]*)>(?:\s*<([^<>]*)>)?`),
	}}

	bracketRe = regexp.MustCompile(`<([^<>]*)>`)
)

// Verdict is the oracle's pairwise conflict call.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictContradiction
	VerdictContained
)

func (v Verdict) String() string {
	switch v {
	case VerdictContradiction:
		return "contradiction"
	case VerdictContained:
		return "contained"
	default:
		return "none"
	}
}

func parseVerdict(s string) (Verdict, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contradiction", "矛盾":
		return VerdictContradiction, true
	case "contained", "被包含":
		return VerdictContained, true
	case "none", "无":
		return VerdictNone, true
	}
	return VerdictNone, false
}

// noneMarkers are oracle stand-ins for "nothing here". A record whose
// content reduces to one of these is never materialized into a Memory.
func isNoneMarker(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "无", "none", "", "repeat":
		return true
	}
	return false
}

// observationRecord is one parsed Information line.
type observationRecord struct {
	Index    int
	TimeInfo string
	Content  string
	Keywords string
}

// parseObservationLines scans the oracle reply for Information lines.
// Lines that match no grammar are ignored; a matched line with a
// non-positive or non-integer index is logged and skipped, never fatal.
func parseObservationLines(text string, timeAware bool, logger *log.Logger) []observationRecord {
	grammar := obsPlainGrammar
	if timeAware {
		grammar = obsTimeGrammar
	}

	var records []observationRecord
	for _, line := range strings.Split(text, "\n") {
		fields := grammar.match(line)
		if fields == nil {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || index <= 0 {
			logger.Warn("Skipping observation line with bad index", "raw", strings.TrimSpace(fields[0]))
			continue
		}

		rec := observationRecord{Index: index}
		if timeAware {
			rec.TimeInfo = strings.TrimSpace(fields[1])
			rec.Content = strings.TrimSpace(fields[2])
			rec.Keywords = strings.TrimSpace(fields[3])
		} else {
			rec.Content = strings.TrimSpace(fields[1])
			rec.Keywords = strings.TrimSpace(fields[2])
		}
		records = append(records, rec)
	}

	return records
}

// scoreRecord is one parsed Result line.
type scoreRecord struct {
	Index int
	Score string
}

func parseScoreLines(text string, logger *log.Logger) []scoreRecord {
	var records []scoreRecord
	for _, line := range strings.Split(text, "\n") {
		fields := scoreGrammar.match(line)
		if fields == nil {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || index <= 0 {
			logger.Warn("Skipping score line with bad index", "raw", strings.TrimSpace(fields[0]))
			continue
		}

		records = append(records, scoreRecord{
			Index: index,
			Score: strings.TrimSpace(fields[1]),
		})
	}
	return records
}

// Judgment is one parsed conflict verdict. Index is 1-based, referring to
// the position in the enumerated prompt. Replacement is only populated by
// the long-horizon grammar.
type Judgment struct {
	Index       int
	Verdict     Verdict
	Replacement string
}

func parseJudgmentLines(text string, logger *log.Logger) []Judgment {
	var judgments []Judgment
	for _, line := range strings.Split(text, "\n") {
		fields := judgmentGrammar.match(line)
		if fields == nil {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || index <= 0 {
			logger.Warn("Skipping judgment line with bad index", "raw", strings.TrimSpace(fields[0]))
			continue
		}

		verdict, ok := parseVerdict(fields[1])
		if !ok {
			logger.Warn("Skipping judgment line with unknown verdict", "raw", strings.TrimSpace(fields[1]))
			continue
		}

		j := Judgment{Index: index, Verdict: verdict}
		if len(fields) > 2 {
			j.Replacement = strings.TrimSpace(fields[2])
		}
		judgments = append(judgments, j)
	}
	return judgments
}

// parseProfileReply extracts the rewritten insight from an oracle reply.
// Two tiers: the strict first line of the form "{user}'s profile: ..." /
// "{user}的资料: ..." wins; failing that, the last bracketed <...>
// substring anywhere in the reply is taken as the most likely final
// answer. Returns ok=false when neither tier yields text.
func parseProfileReply(text, userName string) (string, bool) {
	quoted := regexp.QuoteMeta(userName)
	strict := regexp.MustCompile(`(?i)^\s*` + quoted + `(?:'s profile|的资料)\s*[:：]\s*(.+)$`)

	for _, line := range strings.Split(text, "\n") {
		if m := strict.FindStringSubmatch(line); m != nil {
			return trimBrackets(m[1]), true
		}
	}

	matches := bracketRe.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		return strings.TrimSpace(matches[len(matches)-1][1]), true
	}

	return "", false
}

func trimBrackets(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") && len(s) >= 2 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
