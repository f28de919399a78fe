package transcript

import (
	"sort"
	"strings"
)

// GradeScale maps a letter grade to its quality-point value per credit hour.
type GradeScale map[string]float64

// DefaultScale is the 4.0 scale used for admission GPA calculations.
// It is read-only; callers must not mutate it.
var DefaultScale = GradeScale{
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D+": 1.3,
	"D":  1.0,
	"F":  0.0,
}

// Lookup returns the grade-point value for grade. Lookup is case-insensitive and
// ignores surrounding whitespace.
func (s GradeScale) Lookup(grade string) (float64, bool) {
	v, ok := s[CanonicalGrade(grade)]
	return v, ok
}

// Contains reports whether grade is a key of the scale.
func (s GradeScale) Contains(grade string) bool {
	_, ok := s.Lookup(grade)
	return ok
}

// Grades returns the scale keys ordered from highest to lowest value.
func (s GradeScale) Grades() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s[keys[i]] == s[keys[j]] {
			return keys[i] < keys[j]
		}
		return s[keys[i]] > s[keys[j]]
	})
	return keys
}

// CanonicalGrade uppercases and trims a raw grade token.
func CanonicalGrade(grade string) string {
	return strings.ToUpper(strings.TrimSpace(grade))
}

// Resolve recomputes GradePoints for every row from the scale. Rows loaded from
// storage or an import carry only the raw grade token.
func (s GradeScale) Resolve(t CourseTable) {
	for i := range t {
		t[i].Grade = CanonicalGrade(t[i].Grade)
		if v, ok := s.Lookup(t[i].Grade); ok {
			t[i].GradePoints = &v
		} else {
			t[i].GradePoints = nil
		}
	}
}
