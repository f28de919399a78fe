package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF = regexp.MustCompile(`\r\n?`)
	reTab  = regexp.MustCompile(`\t+`)

	spaceReplacer    = strings.NewReplacer("\u00a0", " ", "\u2007", " ", "\u202f", " ")
	zeroWidthRemover = strings.NewReplacer("\u200b", "", "\ufeff", "")
)

// NormalizeText prepares extracted text for line matching. Runs of two or more
// spaces are kept since strategies use them as column separators.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = zeroWidthRemover.Replace(s)
	s = spaceReplacer.Replace(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTab.ReplaceAllString(s, "  ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}
