package document

import (
	"slices"
	"testing"
)

func TestParseMetadata_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
	}{
		{"nil map", nil},
		{"empty map", map[string]string{}},
		{"unknown values", map[string]string{
			MetaStatus:        "Exploded",
			MetaEmbeddingType: "Lucene",
			MetaPermissions:   " , ,",
		}},
		{"wrong case", map[string]string{MetaStatus: "succeeded", MetaEmbeddingType: "redissearch"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := ParseMetadata(tc.raw)
			if m.Status != NotProcessed {
				t.Errorf("Status = %q, want NotProcessed", m.Status)
			}
			if m.EmbeddingType != EmbeddingNone {
				t.Errorf("EmbeddingType = %q, want None", m.EmbeddingType)
			}
			if m.Permissions == nil || len(m.Permissions) != 0 {
				t.Errorf("Permissions = %#v, want empty non-nil", m.Permissions)
			}
		})
	}
}

func TestParseMetadata_KnownValues(t *testing.T) {
	m := ParseMetadata(map[string]string{
		MetaStatus:        "Succeeded",
		MetaEmbeddingType: "ValkeySearch",
		MetaPermissions:   "HR, Finance,HR",
		"unrelated":       "x",
	})
	if m.Status != Succeeded || m.EmbeddingType != EmbeddingValkeySearch {
		t.Errorf("unexpected metadata: %+v", m)
	}
	if !slices.Equal(m.Permissions, []string{"HR", "Finance"}) {
		t.Errorf("Permissions = %v", m.Permissions)
	}
}

func TestMetadata_RoundTripThroughMap(t *testing.T) {
	in := Metadata{Status: Failed, EmbeddingType: EmbeddingRedisSearch, Permissions: []string{"A", "B"}}
	raw := in.ToMap()
	if raw[MetaPermissions] != "A,B" {
		t.Errorf("stored permissions = %q", raw[MetaPermissions])
	}
	out := ParseMetadata(raw)
	if out.Status != in.Status || out.EmbeddingType != in.EmbeddingType || !slices.Equal(out.Permissions, in.Permissions) {
		t.Errorf("round trip changed metadata: %+v -> %+v", in, out)
	}
}

func TestDefaultMetadata(t *testing.T) {
	m := DefaultMetadata([]string{" HR ", ""})
	if m.Status != NotProcessed || m.EmbeddingType != EmbeddingNone {
		t.Errorf("unexpected defaults: %+v", m)
	}
	if !slices.Equal(m.Permissions, []string{"HR"}) {
		t.Errorf("Permissions = %v", m.Permissions)
	}
}
