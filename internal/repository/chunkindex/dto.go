package chunkindex

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docassist/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	"github.com/kailas-cloud/docassist/internal/domain/permission"
)

const permissionSeparator = domdoc.PermissionSeparator

// recordToHash converts a chunk record into flat HSET fields. The record's
// permission list is written whole; permission_count lets filters select
// unrestricted records.
func recordToHash(rec chunk.Record) map[string]string {
	url := rec.URL
	if url == "" {
		url = rec.SourceFile
	}
	return map[string]string{
		FieldID:                         rec.ID,
		FieldContent:                    rec.Content,
		FieldSourcePage:                 rec.SourcePage,
		FieldSourceFile:                 rec.SourceFile,
		FieldURL:                        url,
		permission.FieldPermissions:     strings.Join(rec.Permissions, permissionSeparator),
		permission.FieldPermissionCount: strconv.Itoa(len(rec.Permissions)),
		FieldEmbedding:                  vectorToBytes(rec.Embedding),
	}
}

// recordFromHash hydrates a record from HGETALL output. The embedding is
// decoded only when present and well-formed.
func recordFromHash(m map[string]string) chunk.Record {
	return chunk.Record{
		ID:          m[FieldID],
		Content:     m[FieldContent],
		SourcePage:  m[FieldSourcePage],
		SourceFile:  m[FieldSourceFile],
		URL:         m[FieldURL],
		Permissions: domdoc.SplitPermissions(m[permission.FieldPermissions]),
		Embedding:   bytesToVector(m[FieldEmbedding]),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
