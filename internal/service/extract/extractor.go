// Package extract turns uploaded files into plain text for the model.
package extract

import (
	"bytes"
	"fmt"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extractor converts raw file bytes into text. Implementations never fail:
// problems are reported as placeholder text that flows on as ordinary context.
type Extractor interface {
	Extract(data []byte, filename, contentType string) string
}

// TextExtractor handles plain-text formats and PDFs, and reports anything else
// as unsupported.
type TextExtractor struct{}

// NewTextExtractor returns the built-in extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".html": true,
	".htm":  true,
	".xml":  true,
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(data []byte, filename, contentType string) string {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Sprintf("[%s: file is empty]", filename)
	}

	if isPDF(filename, contentType) {
		return extractPDF(data, filename)
	}

	if !isText(filename, contentType) {
		return fmt.Sprintf("[%s: text extraction is not supported for %s]", filename, describeType(filename, contentType))
	}

	if !utf8.Valid(data) {
		return fmt.Sprintf("[%s: could not decode file contents as UTF-8 text]", filename)
	}

	return strings.TrimSpace(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
}

func isText(filename, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if strings.HasPrefix(mediaType, "text/") || mediaType == "application/json" || mediaType == "application/xml" {
			return true
		}
	}
	return textExtensions[strings.ToLower(filepath.Ext(filename))]
}

func isPDF(filename, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// extractPDF 返回 PDF 的纯文本；解析器在损坏文件上可能 panic，统一转为占位文本。
func extractPDF(data []byte, filename string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[extract] pdf parser panic for %s: %v", filename, r)
			text = fmt.Sprintf("[%s: could not extract text from PDF]", filename)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Printf("[extract] failed to open pdf %s: %v", filename, err)
		return fmt.Sprintf("[%s: could not extract text from PDF]", filename)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		log.Printf("[extract] failed to read pdf text %s: %v", filename, err)
		return fmt.Sprintf("[%s: could not extract text from PDF]", filename)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		log.Printf("[extract] failed to read pdf text %s: %v", filename, err)
		return fmt.Sprintf("[%s: could not extract text from PDF]", filename)
	}

	extracted := strings.TrimSpace(buf.String())
	if extracted == "" {
		return fmt.Sprintf("[%s: PDF contains no extractable text]", filename)
	}
	return extracted
}

func describeType(filename, contentType string) string {
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	if ext := filepath.Ext(filename); ext != "" {
		return ext + " files"
	}
	return "this file type"
}

// Combine joins per-file extracted text into one labelled block per document.
func Combine(filenames, texts []string) string {
	var builder strings.Builder
	for i, text := range texts {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		name := ""
		if i < len(filenames) {
			name = filenames[i]
		}
		builder.WriteString("=== ")
		builder.WriteString(name)
		builder.WriteString(" ===\n")
		builder.WriteString(text)
	}
	return builder.String()
}
