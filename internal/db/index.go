package db

import (
	"errors"
	"fmt"
	"regexp"
)

// StorageHash is the only document storage used for FT indexes here.
const StorageHash = "HASH"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm maps a config value to an algorithm, defaulting to HNSW.
func ParseVectorAlgorithm(s string) VectorAlgorithm {
	if VectorAlgorithm(s) == VectorFlat {
		return VectorFlat
	}
	return VectorHNSW
}

// IndexFieldType is the FT.CREATE schema keyword of a field.
type IndexFieldType string

const (
	IndexFieldNumeric IndexFieldType = "NUMERIC"
	IndexFieldTag     IndexFieldType = "TAG"
	IndexFieldText    IndexFieldType = "TEXT"
	IndexFieldVector  IndexFieldType = "VECTOR"
)

// TagOptions tune a TAG field. The zero value uses the server defaults.
type TagOptions struct {
	Separator     string
	CaseSensitive bool
}

// TextOptions tune a TEXT field.
type TextOptions struct {
	NoStem bool
}

// VectorOptions describe a VECTOR field. Zero Algorithm means HNSW and zero
// Distance means COSINE; zero tuning values are left to the server.
type VectorOptions struct {
	Algorithm   VectorAlgorithm
	Dim         int
	Distance    DistanceMetric
	M           int // HNSW only
	EFConstruct int // HNSW only
	BlockSize   int // FLAT only
}

// IndexField describes a single field in an FT index schema. Only the
// options matching Type are read.
type IndexField struct {
	Name   string
	Alias  string
	Type   IndexFieldType
	Tag    TagOptions
	Text   TextOptions
	Vector VectorOptions
}

// Key is the name the field is queried by.
func (f *IndexField) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	vectors := 0
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Key()]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Key())
		}
		seen[f.Key()] = struct{}{}

		switch f.Type {
		case IndexFieldNumeric, IndexFieldTag, IndexFieldText:
		case IndexFieldVector:
			vectors++
			if f.Vector.Dim <= 0 {
				return fmt.Errorf("vector field %s requires positive DIM", f.Name)
			}
		default:
			return fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
		}
	}
	if vectors > 1 {
		return errors.New("at most one vector field is supported")
	}
	return nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_:-]+$`)

// IsValidIdentifier reports whether s is usable as an index name.
func IsValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}
