package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/db"
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
	"github.com/yigit/transcriptgpa/internal/pkg/dberrors"
	"github.com/yigit/transcriptgpa/internal/pkg/logger"
)

var recordColumns = []string{
	"session_id", "position", "course_code", "title", "credits", "grade",
	"term", "term_date", "matches", "source_file",
}

// SessionRepository persists transcript sessions and their course tables.
type SessionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create stores a new session with its rows.
func (r *SessionRepository) Create(ctx context.Context, s *models.TranscriptSession) error {
	sources, err := json.Marshal(s.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode source reports: %w", err)
	}

	return db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("transcript_sessions").
			Columns("id", "sources", "created_at", "updated_at").
			Values(s.ID, sources, s.CreatedAt, s.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create session query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsDuplicateConstraintError(err, "transcript_sessions_pkey") {
				return apperrors.ErrResourceAlreadyExists
			}
			logger.Error().Err(err).Str("sessionID", s.ID.String()).Msg("Error creating transcript session")
			return fmt.Errorf("failed to create session: %w", err)
		}
		return r.insertRecords(ctx, tx, s.ID, s.Table)
	})
}

// GetByID loads a session and its rows in table order. It returns nil, nil when
// the session does not exist. GradePoints are left unset; the caller resolves them
// against its grade scale.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TranscriptSession, error) {
	sql, args, err := r.sb.Select("id", "sources", "created_at", "updated_at").
		From("transcript_sessions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get session query: %w", err)
	}

	var (
		s       models.TranscriptSession
		sources []byte
	)
	err = r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &sources, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		logger.Error().Err(err).Str("sessionID", id.String()).Msg("Error loading transcript session")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal(sources, &s.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode source reports: %w", err)
	}

	table, err := r.records(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Table = table
	return &s, nil
}

// ReplaceRecords overwrites the rows of an existing session in one transaction.
func (r *SessionRepository) ReplaceRecords(ctx context.Context, id uuid.UUID, table transcript.CourseTable) (time.Time, error) {
	now := time.Now().UTC()
	err := db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("transcript_sessions").
			Set("updated_at", now).
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build touch session query: %w", err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrSessionNotFound
		}

		sql, args, err = r.sb.Delete("course_records").Where(squirrel.Eq{"session_id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete records query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
		return r.insertRecords(ctx, tx, id, table)
	})
	return now, err
}

// Delete removes a session; its rows cascade.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.sb.Delete("transcript_sessions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete session query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("sessionID", id.String()).Msg("Error deleting transcript session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// DeleteStale removes sessions not modified since cutoff and reports how many went.
func (r *SessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	sql, args, err := r.sb.Delete("transcript_sessions").Where(squirrel.Lt{"updated_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete stale sessions query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) insertRecords(ctx context.Context, tx pgx.Tx, id uuid.UUID, table transcript.CourseTable) error {
	if len(table) == 0 {
		return nil
	}
	q := r.sb.Insert("course_records").Columns(recordColumns...)
	for i, rec := range table {
		var termDate *time.Time
		if rec.DateKnown() {
			d := rec.Date
			termDate = &d
		}
		q = q.Values(id, i, rec.CourseCode, rec.Title, rec.Credits, rec.Grade, rec.Term, termDate, rec.Matches, rec.SourceFile)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert records query: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyViolation(err, "") {
			return apperrors.ErrSessionNotFound
		}
		logger.Error().Err(err).Str("sessionID", id.String()).Int("rows", len(table)).Msg("Error inserting course records")
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

func (r *SessionRepository) records(ctx context.Context, id uuid.UUID) (transcript.CourseTable, error) {
	sql, args, err := r.sb.Select(recordColumns[2:]...).
		From("course_records").
		Where(squirrel.Eq{"session_id": id}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list records query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	table := transcript.CourseTable{}
	for rows.Next() {
		var (
			rec      transcript.CourseRecord
			termDate *time.Time
		)
		if err := rows.Scan(&rec.CourseCode, &rec.Title, &rec.Credits, &rec.Grade, &rec.Term, &termDate, &rec.Matches, &rec.SourceFile); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Date = transcript.SentinelDate
		if termDate != nil {
			rec.Date = termDate.UTC()
		}
		table = append(table, rec)
	}
	return table, rows.Err()
}
