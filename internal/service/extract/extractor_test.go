package extract

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	e := NewTextExtractor()
	got := e.Extract([]byte("\xef\xbb\xbf  Lease term: 12 months.\n"), "lease.txt", "text/plain; charset=utf-8")
	if got != "Lease term: 12 months." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractByExtension(t *testing.T) {
	e := NewTextExtractor()
	got := e.Extract([]byte("# Notes"), "notes.md", "application/octet-stream")
	if got != "# Notes" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractUnsupportedReturnsPlaceholder(t *testing.T) {
	e := NewTextExtractor()
	docx := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	got := e.Extract([]byte("PK\x03\x04 binary"), "contract.docx", docx)
	if !strings.HasPrefix(got, "[contract.docx:") || !strings.Contains(got, docx) {
		t.Fatalf("unexpected placeholder %q", got)
	}
}

// buildPDF writes a single-page PDF whose content stream shows text, with a
// correct cross-reference table.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPDFText(t *testing.T) {
	e := NewTextExtractor()
	got := e.Extract(buildPDF("Lease term twelve months"), "lease.pdf", "application/pdf")
	if !strings.Contains(got, "Lease term twelve months") {
		t.Fatalf("expected pdf text, got %q", got)
	}
}

func TestExtractPDFByExtension(t *testing.T) {
	e := NewTextExtractor()
	got := e.Extract(buildPDF("Notice period thirty days"), "notice.PDF", "application/octet-stream")
	if !strings.Contains(got, "Notice period thirty days") {
		t.Fatalf("expected pdf text, got %q", got)
	}
}

func TestExtractCorruptPDFReturnsPlaceholder(t *testing.T) {
	e := NewTextExtractor()
	got := e.Extract([]byte("%PDF-1.7 binary"), "contract.pdf", "application/pdf")
	if got != "[contract.pdf: could not extract text from PDF]" {
		t.Fatalf("unexpected placeholder %q", got)
	}
}

func TestExtractEmptyAndInvalid(t *testing.T) {
	e := NewTextExtractor()
	if got := e.Extract(nil, "blank.txt", "text/plain"); !strings.Contains(got, "empty") {
		t.Fatalf("unexpected placeholder %q", got)
	}
	if got := e.Extract([]byte{0xff, 0xfe, 0xfd}, "bad.txt", "text/plain"); !strings.Contains(got, "UTF-8") {
		t.Fatalf("unexpected placeholder %q", got)
	}
}

func TestCombine(t *testing.T) {
	got := Combine([]string{"a.txt", "b.txt"}, []string{"alpha", "beta"})
	want := "=== a.txt ===\nalpha\n\n=== b.txt ===\nbeta"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
