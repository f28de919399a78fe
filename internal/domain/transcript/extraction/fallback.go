package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// FallbackInstruction is the natural-language request sent with the raw text.
const FallbackInstruction = `Extract course data from this transcript text. Return only a JSON array. Each item must have:
- course_code
- title
- credits
- grade
- date (YYYY-MM)`

// SemanticExtractor is an external capability that reads free text and answers with
// a JSON array of {course_code, title, credits, grade, date} objects. Its output is
// untrusted and is validated row by row.
type SemanticExtractor interface {
	ExtractCourses(ctx context.Context, text, instruction string) ([]byte, error)
}

// ErrNoJSONArray is returned when a fallback answer holds no JSON array.
var ErrNoJSONArray = errors.New("no JSON array in fallback output")

// Pipeline runs the dispatcher and, when every strategy misses, the optional
// semantic fallback.
type Pipeline struct {
	Dispatcher *Dispatcher
	Normalizer *transcript.Normalizer
	Fallback   SemanticExtractor
}

// NewPipeline wires a default dispatcher over n. fallback may be nil.
func NewPipeline(n *transcript.Normalizer, fallback SemanticExtractor) *Pipeline {
	return &Pipeline{
		Dispatcher: NewDefaultDispatcher(n),
		Normalizer: n,
		Fallback:   fallback,
	}
}

// Run extracts a course table from text. It never returns an error: capability
// failures are recorded in Result.FallbackErr and leave the result degraded.
func (p *Pipeline) Run(ctx context.Context, text string) Result {
	res := p.Dispatcher.Dispatch(text)
	if !res.Degraded || p.Fallback == nil || strings.TrimSpace(text) == "" {
		return res
	}

	raw, err := p.Fallback.ExtractCourses(ctx, text, FallbackInstruction)
	if err != nil {
		res.FallbackErr = err
		return res
	}
	rows, err := DecodeFallback(raw)
	if err != nil {
		res.FallbackErr = err
		return res
	}

	var table transcript.CourseTable
	for _, row := range rows {
		rec, err := p.Normalizer.Normalize(row)
		if err != nil {
			res.Skips = append(res.Skips, Skip{Strategy: StrategySemanticFallback, Line: row.Code, Reason: err.Error()})
			continue
		}
		table = append(table, rec)
	}
	res.Attempts = append(res.Attempts, Attempt{Strategy: StrategySemanticFallback, Records: len(table), Skipped: len(rows) - len(table)})
	if len(table) == 0 {
		return res
	}
	res.Table = table
	res.Strategy = StrategySemanticFallback
	res.Fallback = true
	res.Degraded = false
	return res
}

// DecodeFallback parses a fallback answer into raw captures. Models often wrap the
// array in prose or code fences, so decoding starts at each '[' in turn and the first
// non-empty array of objects wins; trailing text after it is ignored. Values may be
// strings or numbers; anything else leaves the field empty and the row will fail
// normalization.
func DecodeFallback(raw []byte) ([]transcript.RawCourse, error) {
	var (
		items    []map[string]any
		found    bool
		firstErr error
	)
	for off := 0; ; {
		i := bytes.IndexByte(raw[off:], '[')
		if i < 0 {
			break
		}
		start := off + i
		off = start + 1

		dec := json.NewDecoder(bytes.NewReader(raw[start:]))
		dec.UseNumber()
		var candidate []map[string]any
		if err := dec.Decode(&candidate); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		found = true
		if len(candidate) > 0 {
			items = candidate
			break
		}
	}
	if !found {
		if firstErr != nil {
			return nil, fmt.Errorf("decode fallback array: %w", firstErr)
		}
		return nil, ErrNoJSONArray
	}

	out := make([]transcript.RawCourse, 0, len(items))
	for _, it := range items {
		out = append(out, transcript.RawCourse{
			Code:    scalarString(it["course_code"]),
			Title:   scalarString(it["title"]),
			Credits: scalarString(it["credits"]),
			Grade:   scalarString(it["grade"]),
			Term:    scalarString(it["date"]),
		})
	}
	return out, nil
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}
