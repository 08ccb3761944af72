package pages

import (
	"bytes"
	"fmt"
	"testing"
)

// buildPDF renders a minimal PDF with one text line per page.
func buildPDF(t *testing.T, texts ...string) []byte {
	t.Helper()

	n := len(texts)
	// 1 catalog, 2 pages tree, 3 font, then page/content pairs.
	objs := make([]string, 0, 3+2*n)
	kids := ""
	for i := range texts {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range texts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// streamOnly hides Seek and ReadAt from a reader.
type streamOnly struct {
	r *bytes.Reader
}

func (s streamOnly) Read(p []byte) (int, error) { return s.r.Read(p) }

// seekOnly exposes Read and Seek but not ReadAt.
type seekOnly struct {
	r *bytes.Reader
}

func (s seekOnly) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s seekOnly) Seek(off int64, whence int) (int64, error) { return s.r.Seek(off, whence) }
