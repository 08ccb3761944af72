// Package pages splits source documents into page-level chunks.
package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
)

// Split yields the pages of a document in order. PDF input produces one chunk
// per page named "{base}-{i}.pdf" holding the page text; any other input
// passes through as a single chunk named by its base name with the raw bytes.
// The stream must be seekable.
func Split(ctx context.Context, name string, r io.Reader) iter.Seq2[chunk.Chunk, error] {
	return func(yield func(chunk.Chunk, error) bool) {
		ra, size, err := randomAccess(name, r)
		if err != nil {
			yield(chunk.Chunk{}, err)
			return
		}

		base := path.Base(name)
		if !domdoc.IsPDF(name) {
			data, err := io.ReadAll(io.NewSectionReader(ra, 0, size))
			if err != nil {
				yield(chunk.Chunk{}, fmt.Errorf("read %s: %w", name, err))
				return
			}
			yield(chunk.Chunk{Name: base, SourceFile: base, Content: data}, nil)
			return
		}

		reader, err := pdf.NewReader(ra, size)
		if err != nil {
			yield(chunk.Chunk{}, fmt.Errorf("open pdf %s: %w", name, err))
			return
		}

		total := reader.NumPage()
		for i := 1; i <= total; i++ {
			if err := ctx.Err(); err != nil {
				yield(chunk.Chunk{}, err)
				return
			}
			text, err := pageText(reader.Page(i))
			if err != nil {
				err = fmt.Errorf("extract %s page %d: %w", name, i-1, err)
			}
			c := chunk.Chunk{
				Name:       chunk.PageName(base, i-1),
				SourceFile: base,
				Page:       i - 1,
				Content:    []byte(text),
			}
			if !yield(c, err) {
				return
			}
		}
	}
}

// PageCount returns how many chunks Split will yield for the document.
func PageCount(name string, r io.Reader) (int, error) {
	ra, size, err := randomAccess(name, r)
	if err != nil {
		return 0, err
	}
	if !domdoc.IsPDF(name) {
		return 1, nil
	}
	reader, err := pdf.NewReader(ra, size)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", name, err)
	}
	return reader.NumPage(), nil
}

// CountBytes is PageCount over an in-memory document.
func CountBytes(name string, data []byte) (int, error) {
	return PageCount(name, bytes.NewReader(data))
}

func pageText(p pdf.Page) (string, error) {
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// randomAccess returns an io.ReaderAt and the stream size, or an
// UnsupportedStreamError when the stream cannot seek.
func randomAccess(name string, r io.Reader) (io.ReaderAt, int64, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, 0, &domain.UnsupportedStreamError{Name: name}
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek %s: %w", name, err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek %s: %w", name, err)
	}
	if ra, ok := r.(io.ReaderAt); ok {
		return ra, size, nil
	}
	return &seekReaderAt{rs: rs}, size, nil
}

// seekReaderAt adapts an io.ReadSeeker to io.ReaderAt.
type seekReaderAt struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(s.rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}
