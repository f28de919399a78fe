package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/app/models/dto"
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/extraction"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/gpa"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/structured"
	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
	"github.com/yigit/transcriptgpa/internal/pkg/helpers"
	"github.com/yigit/transcriptgpa/internal/pkg/report"
)

// SourceManual labels rows entered through the API.
const SourceManual = "manual"

// SessionStore persists transcript sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.TranscriptSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TranscriptSession, error)
	ReplaceRecords(ctx context.Context, id uuid.UUID, table transcript.CourseTable) (time.Time, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateSessionToken(sessionID uuid.UUID) (string, time.Time, error)
}

// TranscriptService defines the interface for transcript session operations
type TranscriptService interface {
	CreateSession(ctx context.Context, docs []Document) (*dto.CreateSessionResponse, error)
	GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	GetSources(ctx context.Context, id uuid.UUID) (*dto.SourcesResponse, error)
	AddRecord(ctx context.Context, id uuid.UUID, req *dto.RecordRequest) (*dto.SessionResponse, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, index int, req *dto.RecordRequest) (*dto.SessionResponse, error)
	DeleteRecord(ctx context.Context, id uuid.UUID, index int) (*dto.SessionResponse, error)
	ConfirmMatch(ctx context.Context, id uuid.UUID, requirementID string, index int) (*dto.SessionResponse, error)
	ClearMatch(ctx context.Context, id uuid.UUID, requirementID string) (*dto.SessionResponse, error)
	Suggest(ctx context.Context, id uuid.UUID, requirementID string, limit int) (*dto.SuggestionsResponse, error)
	Evaluate(ctx context.Context, id uuid.UUID) (*dto.EvaluationResponse, error)
	Export(ctx context.Context, id uuid.UUID, format structured.Format) ([]byte, error)
	Report(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// TranscriptConfig holds the limits and policy of the transcript service.
type TranscriptConfig struct {
	MaxFiles        int
	MaxUploadBytes  int64
	PreviewChars    int
	SuggestionLimit int
	WindowCredits   float64
	MinGPA          float64
}

// transcriptServiceImpl implements TranscriptService
type transcriptServiceImpl struct {
	cfg        TranscriptConfig
	store      SessionStore
	tokens     TokenIssuer
	normalizer *transcript.Normalizer
	pipeline   *extraction.Pipeline
	matcher    *prereq.Matcher
	scorer     prereq.Scorer
	acquirer   *TextAcquirer
	log        zerolog.Logger
	now        func() time.Time
}

// TranscriptDeps are the collaborators of the transcript service. Fallback and
// Scorer may be nil; a nil Scorer uses token overlap.
type TranscriptDeps struct {
	Store    SessionStore
	Tokens   TokenIssuer
	Catalog  *prereq.Catalog
	Fallback extraction.SemanticExtractor
	Scorer   prereq.Scorer
	Acquirer *TextAcquirer
	Log      zerolog.Logger
}

// NewTranscriptService creates a new TranscriptService
func NewTranscriptService(cfg TranscriptConfig, deps TranscriptDeps) TranscriptService {
	n := transcript.NewNormalizer(transcript.DefaultScale)
	scorer := deps.Scorer
	if scorer == nil {
		scorer = prereq.TokenScorer{}
	}
	acquirer := deps.Acquirer
	if acquirer == nil {
		acquirer = &TextAcquirer{Concurrency: 1, Log: deps.Log}
	}
	if cfg.WindowCredits <= 0 {
		cfg.WindowCredits = 60
	}
	if cfg.MinGPA <= 0 {
		cfg.MinGPA = 3.0
	}
	return &transcriptServiceImpl{
		cfg:        cfg,
		store:      deps.Store,
		tokens:     deps.Tokens,
		normalizer: n,
		pipeline:   extraction.NewPipeline(n, deps.Fallback),
		matcher:    prereq.NewMatcher(deps.Catalog),
		scorer:     &loggingScorer{next: scorer, log: deps.Log},
		acquirer:   acquirer,
		log:        deps.Log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession extracts a course table from the uploaded documents and stores it
// as a new session. Documents that yield nothing are reported as degraded; the
// session is still created so rows can be entered by hand.
func (s *transcriptServiceImpl) CreateSession(ctx context.Context, docs []Document) (*dto.CreateSessionResponse, error) {
	if len(docs) == 0 {
		return nil, apperrors.ErrNoDocuments
	}
	if s.cfg.MaxFiles > 0 && len(docs) > s.cfg.MaxFiles {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("at most %d files per upload", s.cfg.MaxFiles))
	}

	kinds := make([]models.DocumentKind, len(docs))
	for i, doc := range docs {
		if s.cfg.MaxUploadBytes > 0 && int64(len(doc.Data)) > s.cfg.MaxUploadBytes {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentTooLarge, doc.Name)
		}
		kind, err := DetectKind(doc.Name, doc.Data)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}

	texts, err := s.acquirer.AcquireAll(ctx, docs, kinds)
	if err != nil {
		return nil, err
	}

	var (
		table   transcript.CourseTable
		sources = make([]models.SourceReport, 0, len(docs))
	)
	// Upload order is preserved: rows of the first document come first.
	for i, doc := range docs {
		var (
			rows transcript.CourseTable
			src  models.SourceReport
		)
		if kinds[i].Structured() {
			rows, src = s.importStructured(doc, kinds[i])
		} else {
			rows, src = s.extractText(ctx, doc, kinds[i], texts[i])
		}
		src.Fingerprint = helpers.Fingerprint(doc.Data)
		table = append(table, rows.WithSource(doc.Name)...)
		sources = append(sources, src)
	}
	s.dropInvalidMatches(table)

	now := s.now()
	session := &models.TranscriptSession{
		ID:        uuid.New(),
		Sources:   sources,
		Table:     table,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating transcript session: %w", err)
	}

	token, expiresAt, err := s.tokens.GenerateSessionToken(session.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing session token: %w", err)
	}

	s.log.Info().
		Str("sessionID", session.ID.String()).
		Int("documents", len(docs)).
		Int("records", len(table)).
		Msg("Transcript session created")

	return &dto.CreateSessionResponse{
		Session:   dto.FromTranscriptSession(session),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *transcriptServiceImpl) extractText(ctx context.Context, doc Document, kind models.DocumentKind, acq Acquisition) (transcript.CourseTable, models.SourceReport) {
	src := models.SourceReport{File: doc.Name, Kind: kind}
	if acq.Err != nil {
		src.Degraded = true
		src.Error = acq.Err.Error()
		return nil, src
	}

	src.Preview = preview(transcript.NormalizeText(acq.Text), s.cfg.PreviewChars)
	res := s.pipeline.Run(ctx, acq.Text)

	for _, a := range res.Attempts {
		if a.Records == 0 {
			s.log.Debug().Str("file", doc.Name).Str("strategy", a.Strategy).Int("skipped", a.Skipped).Msg("Strategy missed")
		}
	}
	for _, sk := range res.Skips {
		s.log.Debug().Str("file", doc.Name).Str("strategy", sk.Strategy).Str("line", sk.Line).Str("reason", sk.Reason).Msg("Line skipped")
	}
	if res.FallbackErr != nil {
		s.log.Warn().Err(res.FallbackErr).Str("file", doc.Name).Msg("Semantic fallback failed")
		src.Error = res.FallbackErr.Error()
	}
	if res.Degraded {
		s.log.Info().Str("file", doc.Name).Msg("No strategy matched; manual entry required")
	}

	src.Strategy = res.Strategy
	src.Records = len(res.Table)
	src.Skipped = len(res.Skips)
	src.Degraded = res.Degraded
	src.Fallback = res.Fallback
	src.Attempts = res.Attempts
	src.Skips = res.Skips
	return res.Table, src
}

func (s *transcriptServiceImpl) importStructured(doc Document, kind models.DocumentKind) (transcript.CourseTable, models.SourceReport) {
	src := models.SourceReport{File: doc.Name, Kind: kind, Strategy: string(kind)}
	format, err := structured.ParseFormat(string(kind))
	if err != nil {
		src.Degraded = true
		src.Error = err.Error()
		return nil, src
	}

	imp, err := structured.Read(bytes.NewReader(doc.Data), format, s.normalizer)
	if err != nil {
		s.log.Info().Err(err).Str("file", doc.Name).Msg("Structured import rejected")
		src.Degraded = true
		src.Error = err.Error()
		return nil, src
	}
	for _, sk := range imp.Skips {
		s.log.Debug().Str("file", doc.Name).Int("row", sk.Row).Str("reason", sk.Reason).Msg("Row skipped")
		src.Skips = append(src.Skips, extraction.Skip{Strategy: string(kind), Line: fmt.Sprintf("row %d", sk.Row), Reason: sk.Reason})
	}
	src.Records = len(imp.Table)
	src.Skipped = len(imp.Skips)
	src.Degraded = len(imp.Table) == 0
	return imp.Table, src
}

// dropInvalidMatches clears imported links to unknown requirements and keeps only the
// first row linked to each requirement.
func (s *transcriptServiceImpl) dropInvalidMatches(table transcript.CourseTable) {
	seen := make(map[string]bool)
	for i := range table {
		m := table[i].Matches
		if m == nil {
			continue
		}
		if _, ok := s.matcher.Catalog().Get(*m); !ok || seen[*m] {
			s.log.Debug().Str("requirement", *m).Int("row", i).Msg("Imported match dropped")
			table[i].Matches = nil
			continue
		}
		seen[*m] = true
	}
}

// GetSession returns a session with its course table.
func (s *transcriptServiceImpl) GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.FromTranscriptSession(session)
	return &resp, nil
}

// GetSources returns the extraction reports of a session.
func (s *transcriptServiceImpl) GetSources(ctx context.Context, id uuid.UUID) (*dto.SourcesResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sources := session.Sources
	if sources == nil {
		sources = []models.SourceReport{}
	}
	return &dto.SourcesResponse{Sources: sources}, nil
}

// AddRecord appends a hand-entered row.
func (s *transcriptServiceImpl) AddRecord(ctx context.Context, id uuid.UUID, req *dto.RecordRequest) (*dto.SessionResponse, error) {
	rec, err := s.recordFromRequest(req)
	if err != nil {
		return nil, err
	}
	rec.SourceFile = SourceManual
	return s.mutate(ctx, id, func(t *transcript.CourseTable) error {
		*t = append(*t, rec)
		return nil
	})
}

// UpdateRecord replaces the fields of a row. Its requirement link and provenance
// are kept.
func (s *transcriptServiceImpl) UpdateRecord(ctx context.Context, id uuid.UUID, index int, req *dto.RecordRequest) (*dto.SessionResponse, error) {
	rec, err := s.recordFromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(t *transcript.CourseTable) error {
		if index < 0 || index >= len(*t) {
			return recordNotFound(index)
		}
		old := (*t)[index]
		rec.Matches = old.Matches
		rec.SourceFile = old.SourceFile
		(*t)[index] = rec
		return nil
	})
}

// DeleteRecord removes a row. Later rows move up by one.
func (s *transcriptServiceImpl) DeleteRecord(ctx context.Context, id uuid.UUID, index int) (*dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(t *transcript.CourseTable) error {
		if index < 0 || index >= len(*t) {
			return recordNotFound(index)
		}
		*t = append((*t)[:index], (*t)[index+1:]...)
		return nil
	})
}

// ConfirmMatch links a row to a requirement.
func (s *transcriptServiceImpl) ConfirmMatch(ctx context.Context, id uuid.UUID, requirementID string, index int) (*dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(t *transcript.CourseTable) error {
		return mapMatchError(s.matcher.Confirm(t, requirementID, index))
	})
}

// ClearMatch removes the link of a requirement.
func (s *transcriptServiceImpl) ClearMatch(ctx context.Context, id uuid.UUID, requirementID string) (*dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(t *transcript.CourseTable) error {
		return mapMatchError(s.matcher.Clear(t, requirementID))
	})
}

// Suggest ranks rows as candidates for a requirement. Nothing is linked.
func (s *transcriptServiceImpl) Suggest(ctx context.Context, id uuid.UUID, requirementID string, limit int) (*dto.SuggestionsResponse, error) {
	if _, ok := s.matcher.Catalog().Get(requirementID); !ok {
		return nil, mapMatchError(fmt.Errorf("%w: %s", prereq.ErrUnknownRequirement, requirementID))
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.SuggestionLimit
	}
	suggestions, err := s.matcher.Suggest(ctx, session.Table, requirementID, s.scorer, limit)
	if err != nil {
		return nil, mapMatchError(err)
	}
	return &dto.SuggestionsResponse{RequirementID: requirementID, Suggestions: suggestions}, nil
}

// Evaluate computes the three GPAs and the eligibility verdict.
func (s *transcriptServiceImpl) Evaluate(ctx context.Context, id uuid.UUID) (*dto.EvaluationResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ev := gpa.Evaluate(session.Table, s.policy())
	shortfalls := ev.Shortfalls()
	if shortfalls == nil {
		shortfalls = []string{}
	}
	missing := s.matcher.Missing(session.Table)
	if missing == nil {
		missing = []string{}
	}
	unresolved := session.Table.Unresolved()
	if unresolved == nil {
		unresolved = []int{}
	}
	return &dto.EvaluationResponse{
		Evaluation: ev,
		Display: map[string]string{
			"cumulative":   ev.Cumulative.String(),
			"trailing":     ev.Trailing.String(),
			"prerequisite": ev.Prerequisite.String(),
		},
		Shortfalls:     shortfalls,
		Recommendation: ev.Recommendation(),
		Confirmed:      s.matcher.Confirmed(session.Table),
		Missing:        missing,
		Unresolved:     unresolved,
	}, nil
}

// Export encodes the course table in the interchange schema.
func (s *transcriptServiceImpl) Export(ctx context.Context, id uuid.UUID, format structured.Format) ([]byte, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := structured.Write(&buf, format, session.Table); err != nil {
		return nil, fmt.Errorf("error exporting session: %w", err)
	}
	return buf.Bytes(), nil
}

// Report renders the evaluation as Markdown ("md") or HTML ("html").
func (s *transcriptServiceImpl) Report(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "md" && format != "markdown" && format != "html" {
		return nil, "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format)
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	in := report.Input{
		Title:        "Transcript evaluation",
		Evaluation:   gpa.Evaluate(session.Table, s.policy()),
		Requirements: s.matcher.Catalog().All(),
		Table:        session.Table,
		Confirmed:    s.matcher.Confirmed(session.Table),
	}
	if format == "html" {
		out, err := report.HTML(in)
		if err != nil {
			return nil, "", err
		}
		return out, "text/html; charset=utf-8", nil
	}
	return []byte(report.Markdown(in)), "text/markdown; charset=utf-8", nil
}

// DeleteSession removes a session and its rows.
func (s *transcriptServiceImpl) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("sessionID", id.String()).Msg("Transcript session deleted")
	return nil
}

// PurgeStale deletes sessions untouched for longer than maxAge. Their tokens have
// expired, so nobody can reach them any more.
func (s *transcriptServiceImpl) PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.store.DeleteStale(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("error purging stale sessions: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("Stale transcript sessions purged")
	}
	return n, nil
}

func (s *transcriptServiceImpl) policy() gpa.Policy {
	return gpa.Policy{
		WindowCredits: s.cfg.WindowCredits,
		MinGPA:        s.cfg.MinGPA,
		Requirements:  s.matcher.Catalog().IDs(),
	}
}

// load fetches a session and resolves its grades against the scale.
func (s *transcriptServiceImpl) load(ctx context.Context, id uuid.UUID) (*models.TranscriptSession, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting transcript session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	s.normalizer.Scale.Resolve(session.Table)
	return session, nil
}

// mutate applies fn to a session's table and stores the result.
func (s *transcriptServiceImpl) mutate(ctx context.Context, id uuid.UUID, fn func(t *transcript.CourseTable) error) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(&session.Table); err != nil {
		return nil, err
	}
	updatedAt, err := s.store.ReplaceRecords(ctx, id, session.Table)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating transcript session: %w", err)
	}
	session.UpdatedAt = updatedAt
	resp := dto.FromTranscriptSession(session)
	return &resp, nil
}

func (s *transcriptServiceImpl) recordFromRequest(req *dto.RecordRequest) (transcript.CourseRecord, error) {
	if req == nil {
		return transcript.CourseRecord{}, apperrors.ErrInvalidRecord
	}
	rec, err := s.normalizer.Normalize(req.RawCourse())
	if err != nil {
		return transcript.CourseRecord{}, apperrors.NewCustomError(apperrors.ErrInvalidRecord, err.Error())
	}
	return rec, nil
}

func recordNotFound(index int) error {
	return apperrors.NewCustomError(apperrors.ErrRecordNotFound, fmt.Sprintf("no course record at index %d", index))
}

func mapMatchError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, prereq.ErrUnknownRequirement):
		return apperrors.NewCustomError(apperrors.ErrRequirementNotFound, err.Error())
	case errors.Is(err, prereq.ErrRecordOutOfRange):
		return apperrors.NewCustomError(apperrors.ErrRecordNotFound, err.Error())
	default:
		return err
	}
}

// preview returns at most n runes of text.
func preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}

// loggingScorer records advisory failures, which Suggest otherwise swallows.
type loggingScorer struct {
	next prereq.Scorer
	log  zerolog.Logger
}

func (l *loggingScorer) Score(ctx context.Context, required, candidate string) (prereq.Judgment, error) {
	j, err := l.next.Score(ctx, required, candidate)
	if err != nil {
		l.log.Warn().Err(err).Str("candidate", candidate).Msg("Similarity scoring failed")
	}
	return j, err
}
