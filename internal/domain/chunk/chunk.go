// Package chunk models page-level units of a document and their index records.
package chunk

import (
	"fmt"
	"path"
	"strings"
)

// Chunk is one page of a source document.
type Chunk struct {
	// Name is "{base}-{page}.pdf" for PDF pages, or the document name for pass-through input.
	Name string
	// SourceFile is the parent document name.
	SourceFile string
	// Page is the 0-based page index.
	Page int
	// Content is the extracted page text, or the raw bytes of non-PDF input.
	Content []byte
}

// PageName builds the chunk name for page i of a PDF document.
func PageName(document string, page int) string {
	base := strings.TrimSuffix(document, path.Ext(document))
	return fmt.Sprintf("%s-%d.pdf", base, page)
}

// RecordID maps a chunk name onto [0-9A-Za-z_=-]. Dots become '_' and every
// other byte outside the set, '_' and '=' included, becomes "=XX", so
// distinct names always give distinct ids.
func RecordID(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c == '.':
			sb.WriteByte('_')
		case c == '-', '0' <= c && c <= '9', 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "=%02X", c)
		}
	}
	return sb.String()
}

// Record is the indexed projection of a chunk.
type Record struct {
	ID         string
	Content    string
	SourcePage string
	SourceFile string
	// URL is where the source document can be fetched; empty means unknown.
	URL         string
	Permissions []string
	Embedding   []float32
}

// NewRecord builds a record from a chunk, its text and vector. Permissions are
// copied so later changes to the caller's slice cannot leak into the record.
func NewRecord(c Chunk, text string, permissions []string, embedding []float32) Record {
	perms := make([]string, len(permissions))
	copy(perms, permissions)
	return Record{
		ID:          RecordID(c.Name),
		Content:     text,
		SourcePage:  c.Name,
		SourceFile:  c.SourceFile,
		Permissions: perms,
		Embedding:   embedding,
	}
}
