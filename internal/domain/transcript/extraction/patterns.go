package extraction

import (
	"regexp"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// Shared field grammars. Credits allow 1-2 integer digits with up to two decimals;
// grades are 1-2 uppercase letters with an optional modifier.
const (
	subjectExpr = `([A-Z]{2,4})`
	numberExpr  = `(\d{3,4}[A-Z]?)`
	codeExpr    = `([A-Z]{2,4}\s?\d{3,4}[A-Z]?)`
	creditsExpr = `(\d{1,2}(?:\.\d{1,2})?)`
	gradeExpr   = `([A-Z]{1,2}[+-]?)`
	dateExpr    = `(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|[A-Za-z]+\.?\s+\d{4})`
)

var (
	// CHEM 151 General Chemistry I 4.00 A
	reColumnLine = regexp.MustCompile(`^` + codeExpr + `\s+(.+?)\s+` + creditsExpr + `\s+` + gradeExpr + `$`)

	// CHEM  151  General Chemistry I    4.00  A  (two or more spaces before credits)
	reSplitLine = regexp.MustCompile(`^` + subjectExpr + `\s+` + numberExpr + `\s+(.+?)\s{2,}` + creditsExpr + `\s+` + gradeExpr + `$`)

	// CHEM151 General Chemistry I 4.0 A 2021-09-01
	reDatedLine = regexp.MustCompile(`^` + codeExpr + `\s+(.+?)\s+` + creditsExpr + `\s+` + gradeExpr + `\s+` + dateExpr + `$`)

	// Fall 2021
	reTermHeader = regexp.MustCompile(`(?i)^(winter|spring|summer|fall|autumn)(?:\s+(?:semester|term|quarter|session))?\s+\d{4}$`)

	// Any line that opens with something shaped like a course code. Used only to
	// decide whether a non-matching line is worth reporting as a skip.
	reCodeLead = regexp.MustCompile(`^[A-Z]{2,4}\s?\d{3,4}`)

	// Section markers of transfer-credit evaluation reports.
	reBlockMarker = regexp.MustCompile(`(?im)^[ \t]*(?:transfer\s+course\b.*|course\s+evaluation\b.*|[-=]{5,})[ \t]*$`)

	// One embedded course line inside a block segment.
	reBlockCourse = regexp.MustCompile(`(?m)^[ \t]*(?:(?i:course)[ \t]*:[ \t]*)?` + subjectExpr + `[ -]?` + numberExpr + `[ \t]+(.+?)[ \t]+` + creditsExpr +
		`[ \t]*(?:(?i:credits?|cr|hrs?|units?)\.?)?[ \t]+(?:(?i:grade)[ \t]*:[ \t]*)?` + gradeExpr + `[ \t]*$`)

	// Term: Fall 2019 / Date: 2019-12-15 inside a block segment.
	reBlockDate = regexp.MustCompile(`(?im)^[ \t]*(?:term|date|completed|semester)[ \t]*:[ \t]*(.+?)[ \t]*$`)
)

// grammar maps the submatches of one line pattern to a raw capture.
type grammar struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) transcript.RawCourse
}

var (
	columnGrammar = grammar{
		name: "column",
		re:   reColumnLine,
		build: func(m []string) transcript.RawCourse {
			return transcript.RawCourse{Code: m[1], Title: m[2], Credits: m[3], Grade: m[4]}
		},
	}

	splitGrammar = grammar{
		name: "split",
		re:   reSplitLine,
		build: func(m []string) transcript.RawCourse {
			return transcript.RawCourse{Subject: m[1], Number: m[2], Title: m[3], Credits: m[4], Grade: m[5]}
		},
	}

	datedGrammar = grammar{
		name: "dated",
		re:   reDatedLine,
		build: func(m []string) transcript.RawCourse {
			return transcript.RawCourse{Code: m[1], Title: m[2], Credits: m[3], Grade: m[4], Term: m[5]}
		},
	}
)

func (g grammar) match(line string) (transcript.RawCourse, bool) {
	m := g.re.FindStringSubmatch(line)
	if m == nil {
		return transcript.RawCourse{}, false
	}
	return g.build(m), true
}
