package transcript

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Stored column widths, in characters. Longer titles, grades, terms and file names
// are clipped; a longer course code is skipped.
const (
	MaxCourseCodeLen = 32
	MaxTitleLen      = 200
	MaxGradeLen      = 16
	MaxTermLen       = 50
	MaxSourceFileLen = 255
)

// ErrSkipped marks a candidate row that failed validation and was dropped.
var ErrSkipped = errors.New("record skipped")

// SkipError describes why a candidate row was dropped.
type SkipError struct {
	Field  string
	Value  string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *SkipError) Unwrap() error { return ErrSkipped }

// RawCourse holds the captured groups of a matched row before validation.
// Either Code or Subject+Number is set.
type RawCourse struct {
	Code       string
	Subject    string
	Number     string
	Title      string
	Credits    string
	Grade      string
	Term       string
	Matches    string
	SourceFile string
}

// DefaultDateLayouts are tried in order; the first successful parse wins.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"January 2006",
	"Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

var (
	reSeasonTerm = regexp.MustCompile(`(?i)^(winter|spring|summer|fall|autumn)(?:\s+(?:semester|term|quarter|session))?\s+(\d{4})$`)
	reSpaceRun   = regexp.MustCompile(`\s+`)
)

var seasonMonths = map[string]time.Month{
	"winter": time.January,
	"spring": time.March,
	"summer": time.June,
	"fall":   time.September,
	"autumn": time.September,
}

// Normalizer turns raw captures into validated course records.
type Normalizer struct {
	Scale    GradeScale
	Layouts  []string
	Sentinel time.Time
}

// NewNormalizer returns a normalizer over scale with the default date layouts.
func NewNormalizer(scale GradeScale) *Normalizer {
	if scale == nil {
		scale = DefaultScale
	}
	return &Normalizer{
		Scale:    scale,
		Layouts:  DefaultDateLayouts,
		Sentinel: SentinelDate,
	}
}

// Normalize validates raw and builds a CourseRecord. Every failure is a *SkipError.
func (n *Normalizer) Normalize(raw RawCourse) (CourseRecord, error) {
	code := CanonicalCode(raw.Code, raw.Subject, raw.Number)
	if code == "" {
		return CourseRecord{}, &SkipError{Field: "course_code", Value: raw.Code, Reason: "missing course code"}
	}
	if utf8.RuneCountInString(code) > MaxCourseCodeLen {
		return CourseRecord{}, &SkipError{Field: "course_code", Value: code, Reason: fmt.Sprintf("longer than %d characters", MaxCourseCodeLen)}
	}

	credits, err := ParseCredits(raw.Credits)
	if err != nil {
		return CourseRecord{}, &SkipError{Field: "credits", Value: raw.Credits, Reason: err.Error()}
	}

	term := strings.TrimSpace(raw.Term)
	rec := CourseRecord{
		CourseCode: code,
		Title:      clip(strings.TrimSpace(reSpaceRun.ReplaceAllString(raw.Title, " ")), MaxTitleLen),
		Credits:    credits,
		Grade:      clip(CanonicalGrade(raw.Grade), MaxGradeLen),
		Term:       clip(term, MaxTermLen),
		SourceFile: clip(strings.TrimSpace(raw.SourceFile), MaxSourceFileLen),
	}
	if gp, ok := n.Scale.Lookup(rec.Grade); ok {
		rec.GradePoints = &gp
	}
	// the date comes from the full label, before clipping
	rec.Date, _ = n.ParseDate(term)
	if m := strings.TrimSpace(raw.Matches); m != "" {
		rec.Matches = &m
	}
	return rec, nil
}

// ParseDate tries each layout then the season grammar. On failure it returns the
// sentinel date and false; the fallback only affects recency ordering.
func (n *Normalizer) ParseDate(label string) (time.Time, bool) {
	label = strings.TrimSpace(reSpaceRun.ReplaceAllString(label, " "))
	if label == "" {
		return n.Sentinel, false
	}
	for _, layout := range n.Layouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t.UTC(), true
		}
	}
	if m := reSeasonTerm.FindStringSubmatch(label); m != nil {
		year, err := strconv.Atoi(m[2])
		if err == nil {
			return time.Date(year, seasonMonths[strings.ToLower(m[1])], 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return n.Sentinel, false
}

// ParseCredits parses a non-negative decimal credit value.
func ParseCredits(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, errors.New("empty credits")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("credits not a decimal")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("credits not finite")
	}
	if v < 0 {
		return 0, errors.New("credits negative")
	}
	return v, nil
}

// CanonicalCode builds the course code. Split captures become SUBJECT + " " + NUMBER;
// a combined code has its whitespace runs collapsed. Both are uppercased.
func CanonicalCode(code, subject, number string) string {
	subject = strings.TrimSpace(subject)
	number = strings.TrimSpace(number)
	if subject != "" && number != "" {
		return strings.ToUpper(subject + " " + number)
	}
	code = strings.TrimSpace(reSpaceRun.ReplaceAllString(code, " "))
	return strings.ToUpper(code)
}

// clip cuts s to at most n characters.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
