package prereq

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// Judgment categories.
const (
	CategoryStrong  = "strong"
	CategoryPartial = "partial"
	CategoryWeak    = "weak"
)

// Judgment is a similarity verdict between a requirement and a candidate course.
type Judgment struct {
	Score     float64 `json:"score"`
	Category  string  `json:"category"`
	Rationale string  `json:"rationale,omitempty"`
}

// Scorer judges how well candidate satisfies required. Implementations may call out
// to external services and may fail; callers treat a failure as "no advisory".
type Scorer interface {
	Score(ctx context.Context, required, candidate string) (Judgment, error)
}

// CategoryFor buckets a score.
func CategoryFor(score float64) string {
	switch {
	case score >= 0.7:
		return CategoryStrong
	case score >= 0.35:
		return CategoryPartial
	default:
		return CategoryWeak
	}
}

// Describe flattens a requirement into the text handed to a scorer.
func Describe(r transcript.PrerequisiteRequirement) string {
	return joinNonEmpty(r.Code, r.Name, r.Description)
}

// DescribeRecord flattens a course row into the text handed to a scorer.
func DescribeRecord(r transcript.CourseRecord) string {
	return joinNonEmpty(r.CourseCode, r.Title)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " - ")
}

var (
	reToken     = regexp.MustCompile(`[a-z0-9]+`)
	reCodeToken = regexp.MustCompile(`\b([A-Za-z]{2,4})\s?(\d{3,4}[A-Za-z]?\d?)\b`)
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "to": {}, "in": {}, "for": {},
	"with": {}, "on": {}, "i": {}, "ii": {}, "intro": {}, "introduction": {}, "course": {},
}

// TokenScorer is a deterministic scorer based on word overlap. An identical course
// code on both sides scores 1.
type TokenScorer struct{}

func (TokenScorer) Score(_ context.Context, required, candidate string) (Judgment, error) {
	if rc, cc := firstCode(required), firstCode(candidate); rc != "" && rc == cc {
		return Judgment{Score: 1, Category: CategoryStrong, Rationale: "course code " + rc + " matches"}, nil
	}

	a, b := tokens(required), tokens(candidate)
	if len(a) == 0 || len(b) == 0 {
		return Judgment{Score: 0, Category: CategoryWeak, Rationale: "no comparable words"}, nil
	}
	var shared []string
	for t := range b {
		if _, ok := a[t]; ok {
			shared = append(shared, t)
		}
	}
	// overlap coefficient: candidate titles are short, requirement texts long
	denom := len(a)
	if len(b) < denom {
		denom = len(b)
	}
	score := clamp(float64(len(shared)) / float64(denom))
	return Judgment{
		Score:     score,
		Category:  CategoryFor(score),
		Rationale: fmt.Sprintf("%d shared terms", len(shared)),
	}, nil
}

func firstCode(s string) string {
	m := reCodeToken.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1] + " " + m[2])
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range reToken.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopWords[t]; stop || len(t) < 2 {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

func clamp(x float64) float64 {
	switch {
	case x != x, x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
