package transcript

import "time"

// SentinelDate is assigned when a term or date label cannot be parsed.
// It sorts as the oldest possible attempt in recency ordering.
var SentinelDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// CourseRecord is one academic course attempt extracted from a transcript.
type CourseRecord struct {
	CourseCode  string    `json:"course_code"`
	Title       string    `json:"title"`
	Credits     float64   `json:"credits"`
	Grade       string    `json:"grade"`
	GradePoints *float64  `json:"grade_points"` // nil when the grade is not on the scale
	Term        string    `json:"term,omitempty"`
	Date        time.Time `json:"date"`
	Matches     *string   `json:"matches"`
	SourceFile  string    `json:"source_file,omitempty"`
}

// Resolved reports whether the grade maps to a tabulated grade-point value.
func (r CourseRecord) Resolved() bool {
	return r.GradePoints != nil
}

// QualityPoints returns credits x grade points. ok is false for unresolved grades.
func (r CourseRecord) QualityPoints() (points float64, ok bool) {
	if r.GradePoints == nil {
		return 0, false
	}
	return r.Credits * *r.GradePoints, true
}

// DateKnown reports whether the record carries a parsed term or date.
func (r CourseRecord) DateKnown() bool {
	return !r.Date.Equal(SentinelDate)
}

// MatchesRequirement reports whether the record is confirmed against id.
func (r CourseRecord) MatchesRequirement(id string) bool {
	return r.Matches != nil && *r.Matches == id
}

// CourseTable is an ordered collection of course records. Retakes are legitimate,
// so rows are never deduplicated by course code.
type CourseTable []CourseRecord

// TotalCredits sums the credits of every row, resolved or not.
func (t CourseTable) TotalCredits() float64 {
	var sum float64
	for _, r := range t {
		sum += r.Credits
	}
	return sum
}

// Unresolved returns the indexes of rows whose grade is not on the scale.
func (t CourseTable) Unresolved() []int {
	var out []int
	for i, r := range t {
		if !r.Resolved() {
			out = append(out, i)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing pointer fields.
func (t CourseTable) Clone() CourseTable {
	if t == nil {
		return nil
	}
	out := make(CourseTable, len(t))
	for i, r := range t {
		if r.GradePoints != nil {
			gp := *r.GradePoints
			r.GradePoints = &gp
		}
		if r.Matches != nil {
			m := *r.Matches
			r.Matches = &m
		}
		out[i] = r
	}
	return out
}

// WithSource tags every row with the given provenance label.
func (t CourseTable) WithSource(source string) CourseTable {
	source = clip(source, MaxSourceFileLen)
	for i := range t {
		t[i].SourceFile = source
	}
	return t
}

// PrerequisiteRequirement is a static catalog entry a course record can be matched against.
type PrerequisiteRequirement struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Code        string  `json:"code" yaml:"code"`
	Credits     float64 `json:"credits" yaml:"credits"`
	Description string  `json:"description" yaml:"description"`
}
