package document

import (
	"slices"
	"strings"
)

// Metadata keys stored alongside each blob.
const (
	MetaStatus        = "DocumentProcessingStatus"
	MetaEmbeddingType = "EmbeddingType"
	MetaPermissions   = "Permissions"
)

// PermissionSeparator joins permission names in stored metadata and index records.
const PermissionSeparator = ","

// ProcessingStatus tracks ingestion of a single document.
type ProcessingStatus string

// Processing status values.
const (
	NotProcessed ProcessingStatus = "NotProcessed"
	Processing   ProcessingStatus = "Processing"
	Succeeded    ProcessingStatus = "Succeeded"
	Failed       ProcessingStatus = "Failed"
)

// ParseProcessingStatus parses s, falling back to def for unknown or empty values.
func ParseProcessingStatus(s string, def ProcessingStatus) ProcessingStatus {
	switch st := ProcessingStatus(s); st {
	case NotProcessed, Processing, Succeeded, Failed:
		return st
	default:
		return def
	}
}

// EmbeddingType identifies the backend that indexed a document.
type EmbeddingType string

// Embedding types. The set grows with supported backends.
const (
	EmbeddingNone         EmbeddingType = "None"
	EmbeddingRedisSearch  EmbeddingType = "RedisSearch"
	EmbeddingValkeySearch EmbeddingType = "ValkeySearch"
)

// ParseEmbeddingType parses s, falling back to def for unknown or empty values.
func ParseEmbeddingType(s string, def EmbeddingType) EmbeddingType {
	switch et := EmbeddingType(s); et {
	case EmbeddingNone, EmbeddingRedisSearch, EmbeddingValkeySearch:
		return et
	default:
		return def
	}
}

// Metadata is the typed view of a blob's free-form metadata map.
type Metadata struct {
	Status        ProcessingStatus
	EmbeddingType EmbeddingType
	Permissions   []string
}

// DefaultMetadata is assigned on upload.
func DefaultMetadata(permissions []string) Metadata {
	return Metadata{
		Status:        NotProcessed,
		EmbeddingType: EmbeddingNone,
		Permissions:   NormalizePermissions(permissions),
	}
}

// ParseMetadata reads a raw metadata map. Missing or unknown values take their
// defaults and never produce an error.
func ParseMetadata(raw map[string]string) Metadata {
	return Metadata{
		Status:        ParseProcessingStatus(raw[MetaStatus], NotProcessed),
		EmbeddingType: ParseEmbeddingType(raw[MetaEmbeddingType], EmbeddingNone),
		Permissions:   SplitPermissions(raw[MetaPermissions]),
	}
}

// ToMap renders metadata back into the stored map form.
func (m Metadata) ToMap() map[string]string {
	return map[string]string{
		MetaStatus:        string(m.Status),
		MetaEmbeddingType: string(m.EmbeddingType),
		MetaPermissions:   JoinPermissions(m.Permissions),
	}
}

// SplitPermissions parses a separator-joined permission list.
func SplitPermissions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizePermissions(strings.Split(s, PermissionSeparator))
}

// JoinPermissions renders permission names for storage.
func JoinPermissions(names []string) string {
	return strings.Join(NormalizePermissions(names), PermissionSeparator)
}

// NormalizePermissions trims names, drops blanks and duplicates, and keeps first-seen order.
func NormalizePermissions(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
