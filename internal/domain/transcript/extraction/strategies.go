package extraction

import (
	"strings"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// Strategy is one institution-specific layout convention. Implementations are pure:
// they never fail, and return an empty table when the text is not in their layout.
type Strategy interface {
	Name() string
	Extract(text string) Outcome
}

// Skip records a candidate line or segment that a strategy dropped.
type Skip struct {
	Strategy string `json:"strategy"`
	Line     string `json:"line"`
	Reason   string `json:"reason"`
}

// Outcome is the result of running one strategy.
type Outcome struct {
	Table transcript.CourseTable
	Skips []Skip
}

// Matched reports whether the strategy produced at least one record.
func (o Outcome) Matched() bool {
	return len(o.Table) > 0
}

// collector accumulates records and skips for a single strategy run.
type collector struct {
	strategy string
	norm     *transcript.Normalizer
	out      Outcome
}

func (c *collector) add(raw transcript.RawCourse, source string) {
	rec, err := c.norm.Normalize(raw)
	if err != nil {
		c.skip(source, err.Error())
		return
	}
	c.out.Table = append(c.out.Table, rec)
}

func (c *collector) skip(source, reason string) {
	c.out.Skips = append(c.out.Skips, Skip{Strategy: c.strategy, Line: source, Reason: reason})
}

// LineStrategy matches each line against an ordered list of grammars.
type LineStrategy struct {
	name     string
	norm     *transcript.Normalizer
	grammars []grammar
	strict   bool
}

// NewColumnStrategy matches `CODE TITLE CREDITS GRADE` lines and accepts any short
// uppercase grade token.
func NewColumnStrategy(n *transcript.Normalizer) *LineStrategy {
	return &LineStrategy{name: "column", norm: n, grammars: []grammar{columnGrammar}}
}

// NewSplitColumnStrategy matches `SUBJECT NUMBER TITLE  CREDITS GRADE` lines where a
// run of two or more spaces separates the title from the credits. Grades must be on
// the scale.
func NewSplitColumnStrategy(n *transcript.Normalizer) *LineStrategy {
	return &LineStrategy{name: "split-column", norm: n, grammars: []grammar{splitGrammar}, strict: true}
}

// NewDatedLineStrategy matches course lines that end in their own date column.
func NewDatedLineStrategy(n *transcript.Normalizer) *LineStrategy {
	return &LineStrategy{name: "dated-line", norm: n, grammars: []grammar{datedGrammar}}
}

func (s *LineStrategy) Name() string { return s.name }

func (s *LineStrategy) Extract(text string) Outcome {
	c := &collector{strategy: s.name, norm: s.norm}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		raw, ok := matchGrammars(s.grammars, line)
		if !ok {
			if reCodeLead.MatchString(line) {
				c.skip(line, "no pattern match")
			}
			continue
		}
		if s.strict && !s.norm.Scale.Contains(raw.Grade) {
			c.skip(line, "grade "+raw.Grade+" not on scale")
			continue
		}
		c.add(raw, line)
	}
	return c.out
}

// TermHeaderStrategy treats `Season Year` lines as state: every course line after a
// header inherits it until the next header. Lines before the first header get the
// sentinel date. Text without any header is not in this layout.
type TermHeaderStrategy struct {
	norm     *transcript.Normalizer
	grammars []grammar
}

// NewTermHeaderStrategy builds the term-header strategy over split and column lines.
func NewTermHeaderStrategy(n *transcript.Normalizer) *TermHeaderStrategy {
	return &TermHeaderStrategy{norm: n, grammars: []grammar{splitGrammar, columnGrammar}}
}

func (s *TermHeaderStrategy) Name() string { return "term-header" }

func (s *TermHeaderStrategy) Extract(text string) Outcome {
	c := &collector{strategy: s.Name(), norm: s.norm}
	var (
		term      string
		sawHeader bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if reTermHeader.MatchString(line) {
			term = line
			sawHeader = true
			continue
		}
		raw, ok := matchGrammars(s.grammars, line)
		if !ok {
			if reCodeLead.MatchString(line) {
				c.skip(line, "no pattern match")
			}
			continue
		}
		raw.Term = term
		c.add(raw, line)
	}
	if !sawHeader {
		return Outcome{}
	}
	return c.out
}

// BlockStrategy handles reports made of repeated sections, such as transfer-credit
// evaluations. Each section contributes at most one record; a section with several
// course lines means the text is not in this layout.
type BlockStrategy struct {
	norm *transcript.Normalizer
}

// NewBlockStrategy builds the block-delimited strategy.
func NewBlockStrategy(n *transcript.Normalizer) *BlockStrategy {
	return &BlockStrategy{norm: n}
}

func (s *BlockStrategy) Name() string { return "block" }

func (s *BlockStrategy) Extract(text string) Outcome {
	segments := splitBlocks(text)
	if len(segments) < 2 {
		return Outcome{}
	}
	c := &collector{strategy: s.Name(), norm: s.norm}
	for _, seg := range segments {
		all := reBlockCourse.FindAllStringSubmatch(seg, 2)
		if len(all) > 1 {
			// ruled tables also use dashed lines; a block holds a single course
			return Outcome{}
		}
		if len(all) == 0 {
			c.skip(firstLine(seg), "no course line in block")
			continue
		}
		m := all[0]
		raw := transcript.RawCourse{Subject: m[1], Number: m[2], Title: m[3], Credits: m[4], Grade: m[5]}
		if d := reBlockDate.FindStringSubmatch(seg); d != nil {
			raw.Term = d[1]
		}
		c.add(raw, strings.TrimSpace(m[0]))
	}
	return c.out
}

// splitBlocks cuts text on section markers. Content before the first marker is
// dropped; it is report preamble. Fewer than two markers means the text is not
// block-delimited at all.
func splitBlocks(text string) []string {
	locs := reBlockMarker.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}
	segments := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if seg := strings.TrimSpace(text[loc[1]:end]); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func matchGrammars(gs []grammar, line string) (transcript.RawCourse, bool) {
	for _, g := range gs {
		if raw, ok := g.match(line); ok {
			return raw, true
		}
	}
	return transcript.RawCourse{}, false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
