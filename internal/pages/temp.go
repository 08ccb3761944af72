package pages

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docassist/internal/domain/chunk"
)

// Materialized is a chunk written to a transient file.
type Materialized struct {
	Path string
}

// Materialize writes the chunk content to a uniquely named file under dir
// (os.TempDir when empty). Callers must call Release on every exit path.
func Materialize(dir string, c chunk.Chunk) (*Materialized, error) {
	f, err := os.CreateTemp(dir, "docassist-"+uuid.NewString()+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", c.Name, err)
	}
	m := &Materialized{Path: f.Name()}
	if _, err := f.Write(c.Content); err != nil {
		_ = f.Close()
		m.Release()
		return nil, fmt.Errorf("write temp for %s: %w", c.Name, err)
	}
	if err := f.Close(); err != nil {
		m.Release()
		return nil, fmt.Errorf("close temp for %s: %w", c.Name, err)
	}
	return m, nil
}

// Open opens the transient file for reading.
func (m *Materialized) Open() (*os.File, error) {
	return os.Open(m.Path)
}

// Release removes the transient file. It is safe to call more than once.
func (m *Materialized) Release() {
	if m == nil || m.Path == "" {
		return
	}
	_ = os.Remove(m.Path)
	m.Path = ""
}
