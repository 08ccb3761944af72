package db

import "strings"

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition over hashes.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric})
}

// Tag adds a TAG field with server defaults.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.TagOpts(name, TagOptions{})
}

// TagOpts adds a TAG field with explicit options.
func (b *IndexBuilder) TagOpts(name string, opts TagOptions) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag, Tag: opts})
}

// TextIf adds a TEXT field only when enabled. Backends without full-text
// support reject TEXT fields in FT.CREATE.
func (b *IndexBuilder) TextIf(enabled bool, name string) *IndexBuilder {
	if !enabled {
		return b
	}
	return b.add(IndexField{Name: name, Type: IndexFieldText})
}

// Vector adds the VECTOR field, queried by alias.
func (b *IndexBuilder) Vector(name, alias string, opts VectorOptions) *IndexBuilder {
	if opts.Algorithm == "" {
		opts.Algorithm = VectorHNSW
	}
	if opts.Distance == "" {
		opts.Distance = DistanceCosine
	}
	return b.add(IndexField{Name: name, Alias: alias, Type: IndexFieldVector, Vector: opts})
}

// Build validates and returns a copy of the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Prefixes = append([]string(nil), b.def.Prefixes...)
	def.Fields = append([]IndexField(nil), b.def.Fields...)
	return &def, nil
}

// String renders a short FT.CREATE-like summary for logs.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE " + idx.Name + " ON " + StorageHash)
	if len(idx.Prefixes) > 0 {
		sb.WriteString(" PREFIX " + strings.Join(idx.Prefixes, " "))
	}
	sb.WriteString(" SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		sb.WriteString(" " + f.Name)
		if f.Alias != "" {
			sb.WriteString(" AS " + f.Alias)
		}
		sb.WriteString(" " + string(f.Type))
		if f.Type == IndexFieldVector {
			sb.WriteString(" " + string(f.Vector.Algorithm))
		}
	}
	return sb.String()
}
