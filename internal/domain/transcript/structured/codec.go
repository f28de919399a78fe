package structured

import (
	"io"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// Read dispatches on format.
func Read(r io.Reader, f Format, n *transcript.Normalizer) (Import, error) {
	if f == FormatJSON {
		return ReadJSON(r, n)
	}
	return ReadCSV(r, n)
}

// Write dispatches on format.
func Write(w io.Writer, f Format, t transcript.CourseTable) error {
	if f == FormatJSON {
		return WriteJSON(w, t)
	}
	return WriteCSV(w, t)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}
