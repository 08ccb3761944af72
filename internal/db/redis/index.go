package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/docassist/internal/db"
)

// CreateIndex runs FT.CREATE for def. TEXT fields are refused up front on
// valkey-search, which cannot index them.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index %s: %w", def.Name, err)
	}
	args, err := s.createArgs(def)
	if err != nil {
		return fmt.Errorf("index %s: %w", def.Name, err)
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name. Indexed hashes are kept.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
	return true, nil
}

// SupportsTextSearch reports TEXT field and BM25 support. valkey-search has neither.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return s.flavor == FlavorRedis
}

// Redis says "Unknown index name", valkey-search says "Index ... not found".
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "not found")
}

func (s *Store) createArgs(def *db.IndexDefinition) ([]string, error) {
	args := []string{def.Name, "ON", db.StorageHash}
	if n := len(def.Prefixes); n > 0 {
		args = append(args, "PREFIX", strconv.Itoa(n))
		args = append(args, def.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Type == db.IndexFieldText && !s.SupportsTextSearch(context.Background()) {
			return nil, fmt.Errorf("field %s: TEXT is not supported by valkey-search", f.Name)
		}
		fieldArgs, err := buildFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}
	return args, nil
}

// buildFieldArgs renders one SCHEMA entry: name [AS alias] TYPE [options].
func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{f.Name}
	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldNumeric:
		return append(args, string(f.Type)), nil
	case db.IndexFieldText:
		args = append(args, string(f.Type))
		if f.Text.NoStem {
			args = append(args, "NOSTEM")
		}
		return args, nil
	case db.IndexFieldTag:
		args = append(args, string(f.Type))
		if f.Tag.Separator != "" {
			args = append(args, "SEPARATOR", f.Tag.Separator)
		}
		if f.Tag.CaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
		return args, nil
	case db.IndexFieldVector:
		attrs, algo, err := vectorAttrs(&f.Vector)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		args = append(args, string(f.Type), string(algo), strconv.Itoa(len(attrs)))
		return append(args, attrs...), nil
	default:
		return nil, fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
	}
}

// vectorAttrs returns the attribute list that follows the attribute count
// in a VECTOR field definition.
func vectorAttrs(v *db.VectorOptions) ([]string, db.VectorAlgorithm, error) {
	if v.Dim <= 0 {
		return nil, "", fmt.Errorf("vector DIM must be positive, got %d", v.Dim)
	}
	algo := v.Algorithm
	if algo == "" {
		algo = db.VectorHNSW
	}
	distance := v.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	optional := func(name string, n int) {
		if n > 0 {
			attrs = append(attrs, name, strconv.Itoa(n))
		}
	}
	switch algo {
	case db.VectorHNSW:
		optional("M", v.M)
		optional("EF_CONSTRUCTION", v.EFConstruct)
	case db.VectorFlat:
		optional("BLOCK_SIZE", v.BlockSize)
	default:
		return nil, "", fmt.Errorf("unknown vector algorithm %q", algo)
	}
	return attrs, algo, nil
}
