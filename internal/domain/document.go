package domain

import "time"

// Document is an uploaded source file pending or having undergone extraction.
type Document struct {
	ID               string
	StoragePath      string
	OriginalFilename string
	FileType         string // lower-case extension without the dot, e.g. "pdf"

	RawText   *string
	Processed bool

	UploadedAt  time.Time
	ProcessedAt *time.Time
}

// HasText reports whether extraction recorded any raw text.
func (d *Document) HasText() bool {
	return d.RawText != nil && *d.RawText != ""
}
