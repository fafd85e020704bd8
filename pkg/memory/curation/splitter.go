package curation

import (
	"regexp"
	"strings"

	"github.com/mnemoshard/mnemo/pkg/memory"
)

// TimeWordDetector reports whether a text carries a time reference for
// the given language. The splitter has no knowledge of its internals.
type TimeWordDetector func(text string, lang memory.Language) bool

// SplitMessages partitions messages into a time-bearing subsequence and
// its complement. Order within each subsequence preserves the original
// order. Empty input yields two empty outputs; an empty non-time-bearing
// output means "nothing to extract", not an error.
func SplitMessages(msgs []memory.Message, lang memory.Language, hasTimeWord TimeWordDetector) (timed []memory.Message, plain []memory.Message) {
	for _, msg := range msgs {
		if hasTimeWord != nil && hasTimeWord(msg.Content, lang) {
			timed = append(timed, msg)
		} else {
			plain = append(plain, msg)
		}
	}
	return timed, plain
}

var enTimeWordRe = regexp.MustCompile(`(?i)\b(?:today|tonight|tomorrow|yesterday|now|later|soon|morning|afternoon|evening|night|week|weekend|month|year|monday|tuesday|wednesday|thursday|friday|saturday|sunday|january|february|march|april|may|june|july|august|september|october|november|december|o'?clock|\d{1,2}(?::\d{2})?\s*(?:am|pm))\b`)

var zhTimeWords = []string{
	"今天", "今晚", "明天", "后天", "昨天", "前天", "现在", "刚才", "马上",
	"上午", "下午", "晚上", "凌晨", "中午", "早上",
	"周一", "周二", "周三", "周四", "周五", "周六", "周日", "星期", "礼拜",
	"点钟", "分钟", "小时", "每天", "每周", "每月", "每年", "月份", "号",
}

// DefaultTimeWordDetector is a keyword detector good enough for routing;
// precision lives in the time-aware extractor prompt, not here.
func DefaultTimeWordDetector(text string, lang memory.Language) bool {
	if lang == memory.LanguageZH {
		for _, w := range zhTimeWords {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
	return enTimeWordRe.MatchString(text)
}
