// Package gpa aggregates grade-point averages over a course table. Every
// computation is read-only over its input and works on unrounded sums; rounding
// happens only when a value is displayed.
package gpa

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// epsilon absorbs float drift when comparing accumulated credit hours.
const epsilon = 1e-9

// Value is a GPA that may be undefined. An undefined GPA is never reported as 0.0.
type Value struct {
	GPA     float64
	Credits float64
	Defined bool
}

// Undefined is the value of a GPA with no valid denominator.
var Undefined = Value{}

// Rounded returns the GPA rounded half away from zero to two decimal places.
func (v Value) Rounded() float64 {
	if !v.Defined {
		return 0
	}
	return Round2(v.GPA)
}

func (v Value) String() string {
	if !v.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(v.Rounded(), 'f', 2, 64)
}

// AtLeast reports whether the displayed GPA meets min. Undefined never does.
func (v Value) AtLeast(min float64) bool {
	return v.Defined && v.Rounded()+epsilon >= min
}

// MarshalJSON renders the rounded GPA, or null when undefined.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(v.Rounded())
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// sums accumulates credit-weighted quality points.
type sums struct {
	points  float64
	credits float64
}

func (s *sums) add(r transcript.CourseRecord) {
	qp, ok := r.QualityPoints()
	if !ok || r.Credits <= 0 {
		return
	}
	s.points += qp
	s.credits += r.Credits
}

func (s sums) value() Value {
	if s.credits <= epsilon {
		return Undefined
	}
	return Value{GPA: s.points / s.credits, Credits: s.credits, Defined: true}
}

// Cumulative is the credit-weighted GPA over every row with a resolvable grade.
func Cumulative(t transcript.CourseTable) Value {
	var s sums
	for _, r := range t {
		s.add(r)
	}
	return s.value()
}

// Prerequisite is the cumulative formula restricted to rows confirmed against one
// of ids. It is undefined when no such row has a resolvable grade.
func Prerequisite(t transcript.CourseTable, ids []string) Value {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var s sums
	for _, r := range t {
		if r.Matches == nil {
			continue
		}
		if _, ok := want[*r.Matches]; !ok {
			continue
		}
		s.add(r)
	}
	return s.value()
}

// TrailingWindow is the GPA over the most recent window credit hours. Rows are taken
// newest first (ties keep table order). The row that crosses the window boundary
// contributes the fraction (window - taken) / credits of both its quality points and
// its credits. Fewer than window resolvable credits yields Undefined.
func TrailingWindow(t transcript.CourseTable, window float64) Value {
	if window <= 0 {
		return Undefined
	}

	rows := make([]transcript.CourseRecord, 0, len(t))
	for _, r := range t {
		if r.Resolved() && r.Credits > 0 {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.After(rows[j].Date)
	})

	var points, taken float64
	for _, r := range rows {
		qp, _ := r.QualityPoints()
		if taken+r.Credits <= window+epsilon {
			points += qp
			taken += r.Credits
		} else {
			fraction := (window - taken) / r.Credits
			points += qp * fraction
			taken = window
		}
		if taken >= window-epsilon {
			return Value{GPA: points / window, Credits: window, Defined: true}
		}
	}
	return Undefined
}
