// Package structured reads and writes course tables in the flat interchange schema
// course_code,title,credits,grade,date[,matches]. Export followed by import reproduces
// the table.
package structured

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

const (
	ColCourseCode = "course_code"
	ColTitle      = "title"
	ColCredits    = "credits"
	ColGrade      = "grade"
	ColDate       = "date"
	ColMatches    = "matches"
)

// Required columns in export order. ColMatches is optional on import.
var Required = []string{ColCourseCode, ColTitle, ColCredits, ColGrade, ColDate}

// Columns is the full export header.
var Columns = append(append([]string(nil), Required...), ColMatches)

var ErrSchema = errors.New("structured input does not match the course schema")

// Format selects the encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported structured format %q", s)
	}
}

// RowSkip is a row that failed normalization on import. Row is 1-based and counts data
// rows only.
type RowSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Import is the result of reading one structured document.
type Import struct {
	Table transcript.CourseTable
	Skips []RowSkip
}

// dateLabel is the value written to the date column: the original label when there is
// one, else the parsed date, else nothing.
func dateLabel(r transcript.CourseRecord) string {
	if r.Term != "" {
		return r.Term
	}
	if r.DateKnown() && !r.Date.IsZero() {
		return r.Date.Format("2006-01-02")
	}
	return ""
}

func formatCredits(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

func matchesLabel(r transcript.CourseRecord) string {
	if r.Matches == nil {
		return ""
	}
	return *r.Matches
}

// row converts one decoded row into a record through the normalizer.
func row(n *transcript.Normalizer, fields map[string]string) (transcript.CourseRecord, error) {
	return n.Normalize(transcript.RawCourse{
		Code:    fields[ColCourseCode],
		Title:   fields[ColTitle],
		Credits: fields[ColCredits],
		Grade:   fields[ColGrade],
		Term:    strings.TrimSpace(fields[ColDate]),
		Matches: strings.TrimSpace(fields[ColMatches]),
	})
}
