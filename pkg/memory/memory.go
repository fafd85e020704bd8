// Package memory defines the core entities curated by the pipeline:
// raw chat Messages and the durable Memory records distilled from them.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Language selects which prompt and grammar variants the pipeline uses.
type Language string

const (
	LanguageEN Language = "en"
	LanguageZH Language = "zh"
)

// NormalizeLanguage maps aliases ("cn") onto the canonical tags.
func NormalizeLanguage(tag string) Language {
	switch tag {
	case "zh", "cn":
		return LanguageZH
	default:
		return LanguageEN
	}
}

// Message roles accepted by the pipeline.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single chat turn. Messages are immutable inside the
// pipeline except for the density filter's bounded content truncation.
type Message struct {
	Role        string
	Content     string
	TimeCreated time.Time
	Metadata    map[string]any
}

// KnownRole reports whether the role is one the pipeline recognizes.
// An unrecognized role is an input contract violation, not recoverable
// oracle noise.
func KnownRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Memory is the base curated entity. Observations and insights are the
// same type distinguished by metadata tags, not separate structs.
type Memory struct {
	ID                string
	WorkspaceID       string
	Target            string
	Author            string
	Content           string
	Keywords          string
	ReflectionSubject string
	Metadata          map[string]any
	TimeCreated       time.Time
	TimeModified      time.Time
}

// Well-known metadata keys.
const (
	MetaObservationType = "observation_type"
	MetaTimeInfo        = "time_info"
	MetaInfoScore       = "info_score"
	MetaMemorized       = "memorized"
	MetaRoleName        = "role_name"
	MetaOriginalContent = "original_content"
	MetaUpdateReason    = "update_reason"
	MetaModifiedBy      = "modified_by"
	MetaMemoryType      = "memory_type"
)

// NewMemory mints a Memory with a fresh ID and both timestamps set to now.
func NewMemory(workspaceID, target, author, content string) Memory {
	now := time.Now()
	return Memory{
		ID:           uuid.New().String(),
		WorkspaceID:  workspaceID,
		Target:       target,
		Author:       author,
		Content:      content,
		Metadata:     map[string]any{},
		TimeCreated:  now,
		TimeModified: now,
	}
}

// Touch advances TimeModified, preserving TimeModified >= TimeCreated.
func (m *Memory) Touch(now time.Time) {
	if now.Before(m.TimeCreated) {
		now = m.TimeCreated
	}
	m.TimeModified = now
}

// MergeMetadata overlays src onto dst shallowly; the later writer's keys
// win. A nil dst is allocated so callers can merge into zero Memories.
func MergeMetadata(dst map[string]any, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// CopyMetadata returns a shallow copy, never nil.
func CopyMetadata(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// MemorizedFlag reads the memorized marker from message metadata.
func MemorizedFlag(meta map[string]any) bool {
	v, ok := meta[MetaMemorized]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
