package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/app/models/dto"
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/gpa"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/structured"
	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.TranscriptSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[uuid.UUID]*models.TranscriptSession)}
}

// fitsColumns rejects rows the course_records table could not hold.
func fitsColumns(table transcript.CourseTable) error {
	for i, r := range table {
		for _, f := range []struct {
			name  string
			value string
			max   int
		}{
			{"course_code", r.CourseCode, transcript.MaxCourseCodeLen},
			{"title", r.Title, transcript.MaxTitleLen},
			{"grade", r.Grade, transcript.MaxGradeLen},
			{"term", r.Term, transcript.MaxTermLen},
			{"source_file", r.SourceFile, transcript.MaxSourceFileLen},
		} {
			if n := utf8.RuneCountInString(f.value); n > f.max {
				return fmt.Errorf("row %d: %s too long for column (%d > %d)", i, f.name, n, f.max)
			}
		}
	}
	return nil
}

func (m *memoryStore) Create(_ context.Context, s *models.TranscriptSession) error {
	if err := fitsColumns(s.Table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Table = s.Table.Clone()
	m.sessions[s.ID] = &cp
	return nil
}

// GetByID drops GradePoints like the database does.
func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.TranscriptSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.Table = s.Table.Clone()
	for i := range cp.Table {
		cp.Table[i].GradePoints = nil
	}
	return &cp, nil
}

func (m *memoryStore) ReplaceRecords(_ context.Context, id uuid.UUID, table transcript.CourseTable) (time.Time, error) {
	if err := fitsColumns(table); err != nil {
		return time.Time{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return time.Time{}, apperrors.ErrSessionNotFound
	}
	s.Table = table.Clone()
	s.UpdatedAt = time.Now().UTC()
	return s.UpdatedAt, nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return apperrors.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeTokens struct{}

func (fakeTokens) GenerateSessionToken(id uuid.UUID) (string, time.Time, error) {
	return "token-" + id.String(), time.Now().Add(time.Hour), nil
}

type fakeOCR struct{ text string }

func (f fakeOCR) Recognize(context.Context, []byte) (string, error) { return f.text, nil }

type fakeFallback struct{ answer string }

func (f fakeFallback) ExtractCourses(context.Context, string, string) ([]byte, error) {
	return []byte(f.answer), nil
}

func testCatalog(t *testing.T) *prereq.Catalog {
	t.Helper()
	c, err := prereq.NewCatalog([]transcript.PrerequisiteRequirement{
		{ID: "chemistry", Name: "Chemistry", Code: "CHEM 151", Description: "General chemistry with laboratory"},
		{ID: "statistics", Name: "Statistics", Code: "MATH 163", Description: "Introductory statistics"},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func newTestService(t *testing.T, deps TranscriptDeps) (TranscriptService, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	deps.Store = store
	deps.Tokens = fakeTokens{}
	deps.Catalog = testCatalog(t)
	deps.Log = zerolog.Nop()
	if deps.Acquirer == nil {
		deps.Acquirer = &TextAcquirer{Concurrency: 2, Log: zerolog.Nop()}
	}
	cfg := TranscriptConfig{MaxFiles: 3, MaxUploadBytes: 1 << 20, PreviewChars: 40, SuggestionLimit: 5, WindowCredits: 60, MinGPA: 3.0}
	return NewTranscriptService(cfg, deps), store
}

const columnTranscript = "UNOFFICIAL TRANSCRIPT\nCHEM 151 General Chemistry I 4.00 A\nMATH 163 Statistics 3.00 B+\n"

func create(t *testing.T, svc TranscriptService, docs ...Document) *dto.CreateSessionResponse {
	t.Helper()
	resp, err := svc.CreateSession(context.Background(), docs)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return resp
}

func TestCreateSessionFromText(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	resp := create(t, svc, Document{Name: "transcript.txt", Data: []byte(columnTranscript)})

	if resp.Token != "token-"+resp.Session.ID.String() {
		t.Fatalf("token: got=%q", resp.Token)
	}
	if len(resp.Session.Records) != 2 {
		t.Fatalf("records: want=2 got=%d", len(resp.Session.Records))
	}
	if resp.Session.Records[0].SourceFile != "transcript.txt" {
		t.Fatalf("source file: got=%q", resp.Session.Records[0].SourceFile)
	}
	src := resp.Session.Sources[0]
	if src.Kind != models.DocumentText || src.Strategy != "column" || src.Records != 2 || src.Degraded {
		t.Fatalf("source report: got=%+v", src)
	}
	if src.Fingerprint == "" || len([]rune(src.Preview)) != 40 {
		t.Fatalf("fingerprint/preview: got=%q/%q", src.Fingerprint, src.Preview)
	}
}

func TestCreateSessionKeepsUploadOrder(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	csv := "course_code,title,credits,grade,date\nPSY 240,Lifespan Development,3,A,Fall 2019\n"
	resp := create(t, svc,
		Document{Name: "courses.csv", Data: []byte(csv)},
		Document{Name: "transcript.txt", Data: []byte(columnTranscript)},
	)
	var codes []string
	for _, r := range resp.Session.Records {
		codes = append(codes, r.CourseCode)
	}
	if got := strings.Join(codes, ","); got != "PSY 240,CHEM 151,MATH 163" {
		t.Fatalf("order: got=%s", got)
	}
	if resp.Session.Sources[0].Kind != models.DocumentCSV || resp.Session.Sources[0].Strategy != "csv" {
		t.Fatalf("csv source: got=%+v", resp.Session.Sources[0])
	}
}

func TestCreateSessionDegradedStillCreates(t *testing.T) {
	svc, store := newTestService(t, TranscriptDeps{})
	resp := create(t, svc, Document{Name: "notes.txt", Data: []byte("Dear admissions committee,\nplease find attached.")})

	if len(resp.Session.Records) != 0 || !resp.Session.Sources[0].Degraded {
		t.Fatalf("want degraded empty session, got=%+v", resp.Session)
	}
	if _, ok := store.sessions[resp.Session.ID]; !ok {
		t.Fatalf("session not stored")
	}
}

func TestCreateSessionUsesFallback(t *testing.T) {
	answer := `Sure: [{"course_code":"BIO 181","title":"Biology","credits":4,"grade":"A-","date":"2021-09"}]`
	svc, _ := newTestService(t, TranscriptDeps{Fallback: fakeFallback{answer: answer}})
	resp := create(t, svc, Document{Name: "odd.txt", Data: []byte("Biology (four credit hours), A-, fall term 2021")})

	src := resp.Session.Sources[0]
	if !src.Fallback || src.Degraded || src.Strategy != "semantic-fallback" {
		t.Fatalf("fallback source: got=%+v", src)
	}
	if len(resp.Session.Records) != 1 || resp.Session.Records[0].CourseCode != "BIO 181" {
		t.Fatalf("records: got=%+v", resp.Session.Records)
	}
}

func TestCreateSessionImages(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n....")

	svc, _ := newTestService(t, TranscriptDeps{})
	resp := create(t, svc, Document{Name: "scan.png", Data: png})
	if src := resp.Session.Sources[0]; !src.Degraded || src.Error != ErrOCRDisabled.Error() {
		t.Fatalf("no ocr: got=%+v", src)
	}

	svc, _ = newTestService(t, TranscriptDeps{Acquirer: &TextAcquirer{OCR: fakeOCR{text: columnTranscript}, Concurrency: 1, Log: zerolog.Nop()}})
	resp = create(t, svc, Document{Name: "scan", Data: png})
	if src := resp.Session.Sources[0]; src.Kind != models.DocumentImage || src.Records != 2 {
		t.Fatalf("ocr: got=%+v", src)
	}
}

func TestCreateSessionRejects(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, nil); !errors.Is(err, apperrors.ErrNoDocuments) {
		t.Fatalf("no documents: got %v", err)
	}
	many := make([]Document, 4)
	for i := range many {
		many[i] = Document{Name: fmt.Sprintf("%d.txt", i), Data: []byte("x")}
	}
	if _, err := svc.CreateSession(ctx, many); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("too many files: got %v", err)
	}
	if _, err := svc.CreateSession(ctx, []Document{{Name: "a.exe", Data: []byte{0x4d, 0x5a, 0x90, 0x00, 0x03}}}); !errors.Is(err, apperrors.ErrUnsupportedDocument) {
		t.Fatalf("unsupported: got %v", err)
	}
	big := Document{Name: "big.txt", Data: make([]byte, 2<<20)}
	if _, err := svc.CreateSession(ctx, []Document{big}); !errors.Is(err, apperrors.ErrDocumentTooLarge) {
		t.Fatalf("too large: got %v", err)
	}
}

func TestImportDropsInvalidMatches(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	csv := strings.Join([]string{
		"course_code,title,credits,grade,date,matches",
		"CHEM 151,General Chemistry,4,A,2020-01,chemistry",
		"CHEM 152,General Chemistry II,4,B,2020-05,chemistry",
		"ART 101,Drawing,3,A,2020-05,art",
	}, "\n")
	resp := create(t, svc, Document{Name: "table.csv", Data: []byte(csv)})

	recs := resp.Session.Records
	if recs[0].Matches == nil || *recs[0].Matches != "chemistry" {
		t.Fatalf("first holder kept: got=%v", recs[0].Matches)
	}
	if recs[1].Matches != nil || recs[2].Matches != nil {
		t.Fatalf("invalid matches dropped: got=%v,%v", recs[1].Matches, recs[2].Matches)
	}
}

func TestCreateSessionClipsOversizedFields(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	longTerm := "Fall 2019 (transferred from Pima Community College, evaluated by registrar)"
	csv := strings.Join([]string{
		"course_code,title,credits,grade,date",
		"BIO 181,General Biology,4,WITHDRAWN,2019-09",
		"BIOLOGY-201-HONORS-SECTION-00123456,Honors Biology,4,A,2020-01",
		"CHEM 151," + strings.Repeat("Chemistry ", 30) + ",4,A,\"" + longTerm + "\"",
		"MATH 163,Statistics,3," + strings.Repeat("Q", 30) + ",2020-05",
	}, "\n")
	block := strings.Join([]string{
		"Transfer Course",
		"BIO 201 Human Anatomy 4.00 B",
		"Term: " + longTerm,
		"Transfer Course",
		"BIO 202 Human Physiology 4.00 A",
		"Term: Spring 2020",
	}, "\n")

	resp := create(t, svc,
		Document{Name: "table.csv", Data: []byte(csv)},
		Document{Name: "evaluation.txt", Data: []byte(block)},
	)

	recs := resp.Session.Records
	if len(recs) != 5 {
		t.Fatalf("records: want=5 got=%d", len(recs))
	}
	if recs[0].Grade != "WITHDRAWN" || recs[0].GradePoints != nil || recs[0].Counted {
		t.Fatalf("unrecognized grade kept uncounted: got=%+v", recs[0])
	}
	if got := utf8.RuneCountInString(recs[1].Title); got > transcript.MaxTitleLen {
		t.Fatalf("title clipped: want<=%d got=%d", transcript.MaxTitleLen, got)
	}
	if got := utf8.RuneCountInString(recs[1].Term); got != transcript.MaxTermLen {
		t.Fatalf("term clipped: want=%d got=%d", transcript.MaxTermLen, got)
	}
	if got := utf8.RuneCountInString(recs[2].Grade); got != transcript.MaxGradeLen {
		t.Fatalf("grade clipped: want=%d got=%d", transcript.MaxGradeLen, got)
	}
	if recs[3].CourseCode != "BIO 201" || !strings.HasPrefix(longTerm, recs[3].Term) {
		t.Fatalf("block term clipped: got=%q/%q", recs[3].CourseCode, recs[3].Term)
	}
	if src := resp.Session.Sources[0]; src.Records != 3 || src.Skipped != 1 {
		t.Fatalf("csv source: want 3 records 1 skipped got=%d/%d", src.Records, src.Skipped)
	}
}

func credits(v float64) *float64 { return &v }

func TestCorrections(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	ctx := context.Background()
	id := create(t, svc, Document{Name: "transcript.txt", Data: []byte(columnTranscript)}).Session.ID

	if _, err := svc.ConfirmMatch(ctx, id, "statistics", 1); err != nil {
		t.Fatalf("ConfirmMatch: %v", err)
	}

	added, err := svc.AddRecord(ctx, id, &dto.RecordRequest{CourseCode: "psy 240", Title: "Development", Credits: credits(3), Grade: "a-", Term: "Spring 2022"})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	last := added.Records[2]
	if last.CourseCode != "PSY 240" || last.Grade != "A-" || last.SourceFile != SourceManual || last.Date != "2022-03-01" {
		t.Fatalf("added record: got=%+v", last)
	}

	updated, err := svc.UpdateRecord(ctx, id, 1, &dto.RecordRequest{CourseCode: "MATH 163", Title: "Statistics", Credits: credits(3), Grade: "A"})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if r := updated.Records[1]; r.Grade != "A" || r.Matches == nil || *r.Matches != "statistics" || r.GradePoints == nil || *r.GradePoints != 4 {
		t.Fatalf("updated record keeps match: got=%+v", r)
	}

	deleted, err := svc.DeleteRecord(ctx, id, 0)
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if len(deleted.Records) != 2 || deleted.Records[0].CourseCode != "MATH 163" {
		t.Fatalf("after delete: got=%+v", deleted.Records)
	}

	if _, err := svc.DeleteRecord(ctx, id, 9); !errors.Is(err, apperrors.ErrRecordNotFound) {
		t.Fatalf("delete out of range: got %v", err)
	}
	if _, err := svc.AddRecord(ctx, id, &dto.RecordRequest{CourseCode: "MATH 100", Credits: credits(-1), Grade: "A"}); !errors.Is(err, apperrors.ErrInvalidRecord) {
		t.Fatalf("negative credits: got %v", err)
	}
	if _, err := svc.ConfirmMatch(ctx, id, "nutrition", 0); !errors.Is(err, apperrors.ErrRequirementNotFound) {
		t.Fatalf("unknown requirement: got %v", err)
	}
	if _, err := svc.ClearMatch(ctx, id, "statistics"); err != nil {
		t.Fatalf("ClearMatch: %v", err)
	}
}

func TestEvaluateEligible(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	ctx := context.Background()

	rows := []string{"course_code,title,credits,grade,date"}
	for i := 0; i < 19; i++ {
		rows = append(rows, fmt.Sprintf("GEN %d,Elective,3,A,2019-0%d", 100+i, 1+i%9))
	}
	rows = append(rows, "CHEM 151,General Chemistry,4,B,2021-09", "MATH 163,Statistics,3,A,2021-01")
	id := create(t, svc, Document{Name: "table.csv", Data: []byte(strings.Join(rows, "\n"))}).Session.ID

	ev, err := svc.Evaluate(ctx, id)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Eligible || ev.Prerequisite.Defined {
		t.Fatalf("no confirmed prerequisites: want ineligible/undefined got=%+v", ev.Evaluation)
	}
	if len(ev.Missing) != 2 || ev.Recommendation != gpa.IneligibleMessage {
		t.Fatalf("missing/recommendation: got=%v/%q", ev.Missing, ev.Recommendation)
	}

	if _, err := svc.ConfirmMatch(ctx, id, "chemistry", 19); err != nil {
		t.Fatalf("ConfirmMatch: %v", err)
	}
	if _, err := svc.ConfirmMatch(ctx, id, "statistics", 20); err != nil {
		t.Fatalf("ConfirmMatch: %v", err)
	}
	ev, err = svc.Evaluate(ctx, id)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ev.Eligible || ev.Recommendation != gpa.EligibleMessage {
		t.Fatalf("want eligible, got=%+v shortfalls=%v", ev.Evaluation, ev.Shortfalls)
	}
	// (4*3 + 3*4) / 7
	if ev.Display["prerequisite"] != "3.43" {
		t.Fatalf("prerequisite display: want=3.43 got=%s", ev.Display["prerequisite"])
	}
	if ev.Confirmed["chemistry"] != 19 || len(ev.Missing) != 0 {
		t.Fatalf("confirmed/missing: got=%v/%v", ev.Confirmed, ev.Missing)
	}
}

func TestSuggestRanksWithTokenScorer(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	ctx := context.Background()
	id := create(t, svc, Document{Name: "transcript.txt", Data: []byte(columnTranscript)}).Session.ID

	resp, err := svc.Suggest(ctx, id, "chemistry", 0)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(resp.Suggestions) != 2 || resp.Suggestions[0].Index != 0 {
		t.Fatalf("ranking: got=%+v", resp.Suggestions)
	}
	if j := resp.Suggestions[0].Judgment; j == nil || j.Score != 1 {
		t.Fatalf("code match judgment: got=%+v", j)
	}

	session, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	for _, r := range session.Records {
		if r.Matches != nil {
			t.Fatalf("suggest must not confirm: %+v", r)
		}
	}

	if _, err := svc.Suggest(ctx, id, "nutrition", 0); !errors.Is(err, apperrors.ErrRequirementNotFound) {
		t.Fatalf("unknown requirement: got %v", err)
	}
}

func TestExportAndReport(t *testing.T) {
	svc, _ := newTestService(t, TranscriptDeps{})
	ctx := context.Background()
	id := create(t, svc, Document{Name: "transcript.txt", Data: []byte(columnTranscript)}).Session.ID

	out, err := svc.Export(ctx, id, structured.FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(string(out), "course_code,title,credits,grade,date,matches\n") || !strings.Contains(string(out), "CHEM 151,General Chemistry I,4,A,,") {
		t.Fatalf("csv export: got=%s", out)
	}

	html, ct, err := svc.Report(ctx, id, "html")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !strings.HasPrefix(ct, "text/html") || !strings.Contains(string(html), "<table>") {
		t.Fatalf("html report: ct=%s body=%s", ct, html)
	}
	if _, _, err := svc.Report(ctx, id, "pdf"); !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Fatalf("report format: got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, store := newTestService(t, TranscriptDeps{})
	ctx := context.Background()
	id := create(t, svc, Document{Name: "transcript.txt", Data: []byte(columnTranscript)}).Session.ID

	if _, err := svc.GetSession(ctx, uuid.New()); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Fatalf("unknown session: got %v", err)
	}
	if err := svc.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.GetSession(ctx, id); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Fatalf("deleted session: got %v", err)
	}

	stale := create(t, svc, Document{Name: "transcript.txt", Data: []byte(columnTranscript)}).Session.ID
	store.sessions[stale].UpdatedAt = time.Now().Add(-48 * time.Hour)
	n, err := svc.PurgeStale(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("PurgeStale: want=1 got=%d err=%v", n, err)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		data string
		want models.DocumentKind
	}{
		{"t.PDF", "", models.DocumentPDF},
		{"t.jpeg", "", models.DocumentImage},
		{"t.csv", "", models.DocumentCSV},
		{"t.json", "", models.DocumentJSON},
		{"upload", "%PDF-1.7\n", models.DocumentPDF},
		{"upload", "CHEM 151 General Chemistry 4 A", models.DocumentText},
	}
	for _, tc := range tests {
		got, err := DetectKind(tc.name, []byte(tc.data))
		if err != nil || got != tc.want {
			t.Fatalf("DetectKind(%q): want=%s got=%s err=%v", tc.name, tc.want, got, err)
		}
	}
}
