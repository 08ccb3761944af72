// Package document models source documents held in object storage.
package document

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// MaxNameLength bounds blob names.
const MaxNameLength = 256

// Content types assigned on upload.
const (
	ContentTypePDF    = "application/pdf"
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
)

// Document is a stored source document with its typed metadata.
type Document struct {
	name         string
	contentType  string
	size         int64
	lastModified time.Time
	url          string
	metadata     Metadata
}

// ValidateName checks a blob name: non-empty, a plain base name, no separators
// that would collide with storage keys.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("document name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("document name too long (max %d)", MaxNameLength)
	}
	if strings.ContainsAny(name, "/\\:*?\r\n") {
		return fmt.Errorf("document name %q contains reserved characters", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("document name %q is reserved", name)
	}
	return nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	name, contentType string, size int64, lastModified time.Time, url string, meta Metadata,
) Document {
	return Document{
		name: name, contentType: contentType, size: size,
		lastModified: lastModified, url: url, metadata: meta,
	}
}

// Name returns the blob name.
func (d *Document) Name() string { return d.name }

// ContentType returns the stored MIME type.
func (d *Document) ContentType() string { return d.contentType }

// Size returns the content length in bytes.
func (d *Document) Size() int64 { return d.size }

// LastModified returns the last write time.
func (d *Document) LastModified() time.Time { return d.lastModified }

// URL returns the document origin URL.
func (d *Document) URL() string { return d.url }

// Metadata returns the typed metadata view.
func (d *Document) Metadata() Metadata { return d.metadata }

// Status returns the processing status.
func (d *Document) Status() ProcessingStatus { return d.metadata.Status }

// EmbeddingType returns the backend that indexed the document.
func (d *Document) EmbeddingType() EmbeddingType { return d.metadata.EmbeddingType }

// Permissions returns the permission names required to view the document.
func (d *Document) Permissions() []string { return d.metadata.Permissions }

// ContentTypeFor derives a MIME type from the file extension.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return ContentTypePDF
	case ".txt", ".md":
		return ContentTypeText
	default:
		return ContentTypeBinary
	}
}

// IsPDF reports whether the name carries a .pdf extension (case-insensitive).
func IsPDF(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}

// URLFor joins a base URL and a blob name.
func URLFor(baseURL, name string) string {
	if baseURL == "" {
		return name
	}
	return strings.TrimRight(baseURL, "/") + "/" + name
}
