package transcript

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(RawCourse{Subject: "chem", Number: "151", Title: "General   Chemistry I", Credits: "4,00", Grade: " a ", Term: "Fall 2021"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.CourseCode != "CHEM 151" {
		t.Fatalf("code: want=%q got=%q", "CHEM 151", rec.CourseCode)
	}
	if rec.Title != "General Chemistry I" {
		t.Fatalf("title: want=%q got=%q", "General Chemistry I", rec.Title)
	}
	if rec.Credits != 4 {
		t.Fatalf("credits: want=4 got=%v", rec.Credits)
	}
	if rec.Grade != "A" || rec.GradePoints == nil || *rec.GradePoints != 4.0 {
		t.Fatalf("grade: want=A/4.0 got=%q/%v", rec.Grade, rec.GradePoints)
	}
	if want := time.Date(2021, time.September, 1, 0, 0, 0, 0, time.UTC); !rec.Date.Equal(want) {
		t.Fatalf("date: want=%v got=%v", want, rec.Date)
	}
	if rec.Matches != nil {
		t.Fatalf("matches: want=nil got=%v", *rec.Matches)
	}
}

func TestNormalizeUnknownGradeRetained(t *testing.T) {
	rec, err := NewNormalizer(nil).Normalize(RawCourse{Code: "BIO 181", Credits: "4", Grade: "Z"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Grade != "Z" {
		t.Fatalf("grade: want=Z got=%q", rec.Grade)
	}
	if rec.Resolved() {
		t.Fatalf("grade Z should be unresolved")
	}
	if _, ok := rec.QualityPoints(); ok {
		t.Fatalf("quality points should be unavailable for Z")
	}
}

func TestNormalizeClipsLongFields(t *testing.T) {
	n := NewNormalizer(nil)
	term := "Fall 2019 (transferred from Pima Community College, evaluated by registrar)"
	rec, err := n.Normalize(RawCourse{
		Code:    "BIO 181",
		Title:   strings.Repeat("Anatomy ", 40),
		Credits: "4",
		Grade:   "WITHDRAWN",
		Term:    term,
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Grade != "WITHDRAWN" || rec.Resolved() {
		t.Fatalf("grade: want=WITHDRAWN unresolved got=%q/%v", rec.Grade, rec.GradePoints)
	}
	if got := utf8.RuneCountInString(rec.Title); got > MaxTitleLen {
		t.Fatalf("title: want<=%d got=%d", MaxTitleLen, got)
	}
	if got := utf8.RuneCountInString(rec.Term); got > MaxTermLen || !strings.HasPrefix(term, rec.Term) {
		t.Fatalf("term: want prefix of %d chars got=%q", MaxTermLen, rec.Term)
	}

	rec, err = n.Normalize(RawCourse{Code: "BIO 181", Credits: "4", Grade: strings.Repeat("X", 40)})
	if err != nil {
		t.Fatalf("Normalize long grade: %v", err)
	}
	if got := utf8.RuneCountInString(rec.Grade); got != MaxGradeLen {
		t.Fatalf("grade length: want=%d got=%d", MaxGradeLen, got)
	}

	// multi-byte titles are cut on characters, not bytes
	rec, err = n.Normalize(RawCourse{Code: "ART 101", Title: strings.Repeat("é", MaxTitleLen+5), Credits: "3", Grade: "A"})
	if err != nil {
		t.Fatalf("Normalize accented: %v", err)
	}
	if !utf8.ValidString(rec.Title) || utf8.RuneCountInString(rec.Title) != MaxTitleLen {
		t.Fatalf("accented title: want %d valid runes got=%d", MaxTitleLen, utf8.RuneCountInString(rec.Title))
	}
}

func TestWithSourceClipsName(t *testing.T) {
	table := CourseTable{{CourseCode: "BIO 181"}}.WithSource(strings.Repeat("a", 300) + ".pdf")
	if got := utf8.RuneCountInString(table[0].SourceFile); got != MaxSourceFileLen {
		t.Fatalf("source: want=%d got=%d", MaxSourceFileLen, got)
	}
}

func TestNormalizeFGradeIsResolved(t *testing.T) {
	rec, err := NewNormalizer(nil).Normalize(RawCourse{Code: "ENG 101", Credits: "3", Grade: "F"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	qp, ok := rec.QualityPoints()
	if !ok || qp != 0 {
		t.Fatalf("F: want=(0,true) got=(%v,%v)", qp, ok)
	}
}

func TestNormalizeSkips(t *testing.T) {
	n := NewNormalizer(nil)
	cases := []struct {
		name  string
		raw   RawCourse
		field string
	}{
		{"missing code", RawCourse{Credits: "3", Grade: "A"}, "course_code"},
		{"empty credits", RawCourse{Code: "ENG 101", Grade: "A"}, "credits"},
		{"text credits", RawCourse{Code: "ENG 101", Credits: "three", Grade: "A"}, "credits"},
		{"negative credits", RawCourse{Code: "ENG 101", Credits: "-1", Grade: "A"}, "credits"},
		{"nan credits", RawCourse{Code: "ENG 101", Credits: "NaN", Grade: "A"}, "credits"},
		{"long code", RawCourse{Code: "BIOLOGY-201-HONORS-SECTION-00123456", Credits: "3", Grade: "A"}, "course_code"},
	}
	for _, tc := range cases {
		_, err := n.Normalize(tc.raw)
		if !errors.Is(err, ErrSkipped) {
			t.Fatalf("%s: want ErrSkipped got=%v", tc.name, err)
		}
		var se *SkipError
		if !errors.As(err, &se) || se.Field != tc.field {
			t.Fatalf("%s: field want=%q got=%v", tc.name, tc.field, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	n := NewNormalizer(nil)
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2021-09-15", time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC), true},
		{"2021-09", time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC), true},
		{"12/15/2019", time.Date(2019, 12, 15, 0, 0, 0, 0, time.UTC), true},
		{"May 2020", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"December 2018", time.Date(2018, 12, 1, 0, 0, 0, 0, time.UTC), true},
		{"Spring 2020", time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"summer  2019", time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"Winter Term 2022", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"sometime", SentinelDate, false},
		{"", SentinelDate, false},
	}
	for _, tc := range cases {
		got, ok := n.ParseDate(tc.in)
		if ok != tc.ok || !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q): want=(%v,%v) got=(%v,%v)", tc.in, tc.want, tc.ok, got, ok)
		}
	}
}

func TestCanonicalCode(t *testing.T) {
	cases := []struct{ code, subject, number, want string }{
		{"", "psio", "201", "PSIO 201"},
		{"mic  205a", "", "", "MIC 205A"},
		{" CHEM151 ", "", "", "CHEM151"},
		{"", "", "", ""},
	}
	for _, tc := range cases {
		if got := CanonicalCode(tc.code, tc.subject, tc.number); got != tc.want {
			t.Fatalf("CanonicalCode(%q,%q,%q): want=%q got=%q", tc.code, tc.subject, tc.number, tc.want, got)
		}
	}
}

func TestGradeScaleLookup(t *testing.T) {
	if v, ok := DefaultScale.Lookup("b+"); !ok || v != 3.3 {
		t.Fatalf("B+: want=(3.3,true) got=(%v,%v)", v, ok)
	}
	if _, ok := DefaultScale.Lookup("W"); ok {
		t.Fatalf("W should not be on the scale")
	}
	grades := DefaultScale.Grades()
	if len(grades) != 11 || grades[0] != "A" || grades[len(grades)-1] != "F" {
		t.Fatalf("Grades: got=%v", grades)
	}
}

func TestNormalizeText(t *testing.T) {
	in := "CHEM\u00a0151\tGeneral Chemistry   \r\nMATH 163\u200b Stats\r"
	want := "CHEM 151  General Chemistry\nMATH 163 Stats\n"
	if got := NormalizeText(in); got != want {
		t.Fatalf("NormalizeText: want=%q got=%q", want, got)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	gp := 4.0
	m := "chem"
	orig := CourseTable{{CourseCode: "CHEM 151", Credits: 4, GradePoints: &gp, Matches: &m}}
	cp := orig.Clone()
	*cp[0].GradePoints = 1
	*cp[0].Matches = "other"
	if *orig[0].GradePoints != 4 || *orig[0].Matches != "chem" {
		t.Fatalf("clone aliases pointer fields")
	}
}
