package prereq

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// Matcher records user-confirmed links between catalog requirements and rows of a
// course table. A requirement is held by at most one row at a time.
type Matcher struct {
	catalog *Catalog
}

func NewMatcher(c *Catalog) *Matcher {
	return &Matcher{catalog: c}
}

func (m *Matcher) Catalog() *Catalog { return m.catalog }

// Confirm links reqID to the row at index. Any row previously holding reqID is cleared,
// so re-confirming moves the link. A row holds a single requirement; confirming it for a
// second requirement replaces the first.
func (m *Matcher) Confirm(table *transcript.CourseTable, reqID string, index int) error {
	if _, ok := m.catalog.Get(reqID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequirement, reqID)
	}
	if table == nil || index < 0 || index >= len(*table) {
		return fmt.Errorf("%w: %d", ErrRecordOutOfRange, index)
	}
	t := *table
	for i := range t {
		if t[i].MatchesRequirement(reqID) {
			t[i].Matches = nil
		}
	}
	id := reqID
	t[index].Matches = &id
	return nil
}

// Clear removes the link for reqID. Clearing an unlinked requirement is a no-op.
func (m *Matcher) Clear(table *transcript.CourseTable, reqID string) error {
	if _, ok := m.catalog.Get(reqID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequirement, reqID)
	}
	if table == nil {
		return nil
	}
	t := *table
	for i := range t {
		if t[i].MatchesRequirement(reqID) {
			t[i].Matches = nil
		}
	}
	return nil
}

// Confirmed maps each linked requirement id to its row index. Links to ids outside the
// catalog (e.g. from an import against an older catalog) are ignored.
func (m *Matcher) Confirmed(table transcript.CourseTable) map[string]int {
	out := make(map[string]int)
	for i, r := range table {
		if r.Matches == nil {
			continue
		}
		if _, ok := m.catalog.Get(*r.Matches); !ok {
			continue
		}
		if _, seen := out[*r.Matches]; !seen {
			out[*r.Matches] = i
		}
	}
	return out
}

// Missing returns catalog ids with no confirmed row, in catalog order.
func (m *Matcher) Missing(table transcript.CourseTable) []string {
	confirmed := m.Confirmed(table)
	var out []string
	for _, id := range m.catalog.IDs() {
		if _, ok := confirmed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Suggestion is an advisory candidate for a requirement.
type Suggestion struct {
	Index    int                     `json:"recordIndex"`
	Record   transcript.CourseRecord `json:"record"`
	Judgment *Judgment               `json:"judgment,omitempty"` // nil when no advisory is available
}

// Suggest ranks rows of table as candidates for reqID, best first. Rows the scorer
// cannot judge are kept with a nil Judgment and sort last. Suggest never modifies the
// table.
func (m *Matcher) Suggest(ctx context.Context, table transcript.CourseTable, reqID string, scorer Scorer, limit int) ([]Suggestion, error) {
	req, ok := m.catalog.Get(reqID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequirement, reqID)
	}

	required := Describe(req)
	out := make([]Suggestion, 0, len(table))
	for i, r := range table {
		s := Suggestion{Index: i, Record: r}
		candidate := DescribeRecord(r)
		if scorer != nil && required != "" && candidate != "" {
			if j, err := scorer.Score(ctx, required, candidate); err == nil {
				j.Score = clamp(j.Score)
				s.Judgment = &j
			}
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(a, b int) bool {
		ja, jb := out[a].Judgment, out[b].Judgment
		switch {
		case ja == nil:
			return false
		case jb == nil:
			return true
		default:
			return ja.Score > jb.Score
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
