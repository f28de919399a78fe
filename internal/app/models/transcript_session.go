package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/extraction"
)

// DocumentKind identifies how text was acquired from an uploaded document.
type DocumentKind string

const (
	DocumentPDF   DocumentKind = "pdf"
	DocumentImage DocumentKind = "image"
	DocumentText  DocumentKind = "text"
	DocumentCSV   DocumentKind = "csv"
	DocumentJSON  DocumentKind = "json"
)

// Structured reports whether the document is a CSV/JSON course table rather than
// transcript text.
func (k DocumentKind) Structured() bool {
	return k == DocumentCSV || k == DocumentJSON
}

// SourceReport describes what extraction did with one uploaded document.
type SourceReport struct {
	File        string               `json:"file"`
	Kind        DocumentKind         `json:"kind"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	Strategy    string               `json:"strategy,omitempty"`
	Records     int                  `json:"records"`
	Skipped     int                  `json:"skipped"`
	Degraded    bool                 `json:"degraded"`
	Fallback    bool                 `json:"fallback"`
	Error       string               `json:"error,omitempty"`
	Attempts    []extraction.Attempt `json:"attempts,omitempty"`
	Skips       []extraction.Skip    `json:"skips,omitempty"`
	// Preview is the head of the acquired text, for checking what extraction saw.
	Preview     string               `json:"preview,omitempty"`
}

// TranscriptSession is one user's working copy of a course table.
type TranscriptSession struct {
	ID        uuid.UUID              `db:"id"`
	Sources   []SourceReport         `db:"sources"`
	Table     transcript.CourseTable `db:"-"`
	CreatedAt time.Time              `db:"created_at"`
	UpdatedAt time.Time              `db:"updated_at"`
}
