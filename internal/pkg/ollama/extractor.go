package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
)

// ExtractCourses implements the semantic extraction fallback. The answer is returned
// as-is; callers validate every row.
func (c *Client) ExtractCourses(ctx context.Context, text, instruction string) ([]byte, error) {
	out, err := c.Generate(ctx, "", instruction+"\n\n"+text, "")
	if err != nil {
		return nil, fmt.Errorf("semantic extraction: %w", err)
	}
	return []byte(out), nil
}

const scoreSystem = `You compare a required prerequisite course with a course a student completed.
Answer with a JSON object: {"score": number between 0 and 1, "category": "strong" | "partial" | "weak", "rationale": short sentence}.`

type scoreAnswer struct {
	Score     json.Number `json:"score"`
	Category  string      `json:"category"`
	Rationale string      `json:"rationale"`
}

// Scorer adapts the client to prereq.Scorer.
type Scorer struct {
	client *Client
}

func NewScorer(c *Client) *Scorer {
	return &Scorer{client: c}
}

func (s *Scorer) Score(ctx context.Context, required, candidate string) (prereq.Judgment, error) {
	prompt := "Required course:\n" + required + "\n\nCompleted course:\n" + candidate
	out, err := s.client.Generate(ctx, scoreSystem, prompt, "json")
	if err != nil {
		return prereq.Judgment{}, fmt.Errorf("similarity score: %w", err)
	}

	var ans scoreAnswer
	if err := json.Unmarshal([]byte(out), &ans); err != nil {
		return prereq.Judgment{}, fmt.Errorf("similarity score: decode answer: %w", err)
	}
	score, err := ans.Score.Float64()
	if err != nil {
		return prereq.Judgment{}, fmt.Errorf("similarity score: %w", err)
	}
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	category := strings.ToLower(strings.TrimSpace(ans.Category))
	switch category {
	case prereq.CategoryStrong, prereq.CategoryPartial, prereq.CategoryWeak:
	default:
		category = prereq.CategoryFor(score)
	}
	return prereq.Judgment{Score: score, Category: category, Rationale: strings.TrimSpace(ans.Rationale)}, nil
}
