package gpa

import "github.com/yigit/transcriptgpa/internal/domain/transcript"

const (
	EligibleMessage   = "You're likely eligible for the University of Arizona's Nursing MS Program. Hell yeah!"
	IneligibleMessage = "You may need to improve one or more GPA metrics or complete missing prerequisites."
)

// Policy holds the admission thresholds. Requirements lists the catalog ids whose
// confirmed records make up the prerequisite GPA.
type Policy struct {
	WindowCredits float64
	MinGPA        float64
	Requirements  []string
}

// DefaultPolicy is the nursing program rule: last 60 credits and a 3.00 floor.
func DefaultPolicy(requirements []string) Policy {
	return Policy{WindowCredits: 60, MinGPA: 3.0, Requirements: requirements}
}

// Evaluation bundles the three metrics and the verdict derived from them.
type Evaluation struct {
	Cumulative   Value   `json:"cumulative"`
	Trailing     Value   `json:"trailing"`
	Prerequisite Value   `json:"prerequisite"`
	Window       float64 `json:"windowCredits"`
	MinGPA       float64 `json:"minGpa"`
	Eligible     bool    `json:"eligible"`
}

// Evaluate computes all three GPAs. The verdict is eligible only when every value
// is defined and each displayed value is at least p.MinGPA.
func Evaluate(t transcript.CourseTable, p Policy) Evaluation {
	ev := Evaluation{
		Cumulative:   Cumulative(t),
		Trailing:     TrailingWindow(t, p.WindowCredits),
		Prerequisite: Prerequisite(t, p.Requirements),
		Window:       p.WindowCredits,
		MinGPA:       p.MinGPA,
	}
	ev.Eligible = len(ev.Shortfalls()) == 0
	return ev
}

// Shortfalls names the metrics that keep the verdict from being eligible.
func (e Evaluation) Shortfalls() []string {
	var out []string
	check := func(name string, v Value) {
		if !v.AtLeast(e.MinGPA) {
			out = append(out, name)
		}
	}
	check("cumulative", e.Cumulative)
	check("trailing", e.Trailing)
	check("prerequisite", e.Prerequisite)
	return out
}

// Recommendation is the user-facing sentence for the verdict.
func (e Evaluation) Recommendation() string {
	if e.Eligible {
		return EligibleMessage
	}
	return IneligibleMessage
}
