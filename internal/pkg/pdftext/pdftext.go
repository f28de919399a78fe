// Package pdftext reads the embedded text layer of PDF documents.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoTextLayer is returned for PDFs whose pages carry no extractable text, such
// as scanned transcripts.
var ErrNoTextLayer = errors.New("pdf has no text layer")

// columnGap is the horizontal distance, in text-space units, treated as a column
// break. Column breaks become two spaces so split-column grammars still see them.
const columnGap = 12.0

// Extract returns the text of every page, one line per text row.
func Extract(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		// the reader panics on some malformed cross-reference tables
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			if line := joinRow(row.Content); line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoTextLayer
	}
	return b.String(), nil
}

func joinRow(texts pdf.TextHorizontal) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	end := math.Inf(-1)
	for _, t := range sorted {
		if b.Len() > 0 {
			switch gap := t.X - end; {
			case gap > columnGap:
				b.WriteString("  ")
			case gap > 1 && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " "):
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		end = t.X + t.W
	}
	return strings.TrimSpace(b.String())
}
