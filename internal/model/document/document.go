package document

import (
	"strings"
	"time"
)

// Info describes one uploaded file.
type Info struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Set is the single active group of uploaded documents and their combined text.
type Set struct {
	Documents  []Info    `json:"documents"`
	Text       string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Empty reports whether the set carries no usable context. A set whose extracted
// text is blank counts as empty even when documents are listed.
func (s Set) Empty() bool {
	return len(s.Documents) == 0 || strings.TrimSpace(s.Text) == ""
}

// Filenames lists the document names in upload order.
func (s Set) Filenames() []string {
	names := make([]string, 0, len(s.Documents))
	for _, doc := range s.Documents {
		names = append(names, doc.Filename)
	}
	return names
}
