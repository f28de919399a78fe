package structured

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// ReadCSV imports a CSV document. The header must name every required column once
// and may add matches; column order is free. Rows that fail normalization are
// reported in Import.Skips.
func ReadCSV(r io.Reader, n *transcript.Normalizer) (Import, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Import{}, fmt.Errorf("%w: empty document", ErrSchema)
	}
	if err != nil {
		return Import{}, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return Import{}, err
	}

	var out Import
	for rowNum := 1; ; rowNum++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv row %d: %w", rowNum, err)
		}
		if blank(fields) {
			rowNum--
			continue
		}
		values := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(fields) {
				values[name] = fields[i]
			}
		}
		rec, err := row(n, values)
		if err != nil {
			out.Skips = append(out.Skips, RowSkip{Row: rowNum, Reason: err.Error()})
			continue
		}
		out.Table = append(out.Table, rec)
	}
	return out, nil
}

// WriteCSV exports t with the full header.
func WriteCSV(w io.Writer, t transcript.CourseTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range t {
		if err := cw.Write([]string{
			r.CourseCode,
			r.Title,
			formatCredits(r.Credits),
			r.Grade,
			dateLabel(r),
			matchesLabel(r),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func headerIndex(header []string) (map[string]int, error) {
	allowed := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		allowed[c] = true
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !allowed[name] {
			return nil, fmt.Errorf("%w: unexpected column %q", ErrSchema, h)
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrSchema, h)
		}
		cols[name] = i
	}
	for _, c := range Required {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchema, c)
		}
	}
	return cols, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
