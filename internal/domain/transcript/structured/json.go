package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

type jsonRow struct {
	CourseCode string      `json:"course_code"`
	Title      string      `json:"title"`
	Credits    json.Number `json:"credits"`
	Grade      string      `json:"grade"`
	Date       string      `json:"date"`
	Matches    *string     `json:"matches,omitempty"`
}

// ReadJSON imports a JSON array of objects keyed by the column names. Every object
// follows the CSV header rules: all required keys, matches optional, nothing else.
// Credits may be a number or a numeric string.
func ReadJSON(r io.Reader, n *transcript.Normalizer) (Import, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Import{}, fmt.Errorf("read json: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Import{}, fmt.Errorf("%w: empty document", ErrSchema)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return Import{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	var out Import
	for i, it := range items {
		keys := make([]string, 0, len(it))
		for k := range it {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cols, err := headerIndex(keys)
		if err != nil {
			return Import{}, fmt.Errorf("object %d: %w", i+1, err)
		}
		values := make(map[string]string, len(cols))
		for name, j := range cols {
			values[name] = scalar(it[keys[j]])
		}
		rec, err := row(n, values)
		if err != nil {
			out.Skips = append(out.Skips, RowSkip{Row: i + 1, Reason: err.Error()})
			continue
		}
		out.Table = append(out.Table, rec)
	}
	return out, nil
}

// WriteJSON exports t as an indented JSON array.
func WriteJSON(w io.Writer, t transcript.CourseTable) error {
	rows := make([]jsonRow, 0, len(t))
	for _, r := range t {
		rows = append(rows, jsonRow{
			CourseCode: r.CourseCode,
			Title:      r.Title,
			Credits:    json.Number(formatCredits(r.Credits)),
			Grade:      r.Grade,
			Date:       dateLabel(r),
			Matches:    r.Matches,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}
