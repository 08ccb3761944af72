package chunkindex

import (
	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/permission"
)

// Hash field names of a chunk record.
const (
	FieldID         = "id"
	FieldContent    = "content"
	FieldSourcePage = "sourcepage"
	FieldSourceFile = "sourcefile"
	FieldURL        = "url"
	FieldEmbedding  = "embedding"
	// VectorAlias is the name KNN queries use for the embedding field.
	VectorAlias = "vector"
)

// Config holds index parameters.
type Config struct {
	Name        string
	Dimensions  int
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
}

// buildIndex returns the chunk index definition. TEXT on content is only
// added when the backend supports keyword search.
func buildIndex(cfg Config, textSearch bool) (*db.IndexDefinition, error) {
	return db.NewIndex(cfg.Name).
		Prefix(domain.ChunkKeyPrefix).
		Tag(FieldID).
		TextIf(textSearch, FieldContent).
		Tag(FieldSourcePage).
		Tag(FieldSourceFile).
		TagOpts(permission.FieldPermissions, db.TagOptions{Separator: permissionSeparator, CaseSensitive: true}).
		Numeric(permission.FieldPermissionCount).
		Vector(FieldEmbedding, VectorAlias, db.VectorOptions{
			Algorithm:   cfg.Algorithm,
			Dim:         cfg.Dimensions,
			M:           cfg.M,
			EFConstruct: cfg.EFConstruct,
		}).
		Build()
}
