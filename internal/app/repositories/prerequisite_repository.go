package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/db"
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/pkg/logger"
)

// PrerequisiteRepository handles database operations for the requirement catalog
type PrerequisiteRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPrerequisiteRepository creates a new PrerequisiteRepository
func NewPrerequisiteRepository(db *pgxpool.Pool) *PrerequisiteRepository {
	return &PrerequisiteRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns the catalog in its configured order.
func (r *PrerequisiteRepository) List(ctx context.Context) ([]models.Prerequisite, error) {
	sql, args, err := r.sb.Select("id", "name", "code", "credits", "description", "position", "updated_at").
		From("prerequisites").
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list prerequisites query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing prerequisites")
		return nil, fmt.Errorf("failed to list prerequisites: %w", err)
	}
	defer rows.Close()

	var out []models.Prerequisite
	for rows.Next() {
		var p models.Prerequisite
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Credits, &p.Description, &p.Position, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prerequisite: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceAll makes the stored catalog equal to reqs: rows are upserted in order and
// ids no longer listed are removed.
func (r *PrerequisiteRepository) ReplaceAll(ctx context.Context, reqs []transcript.PrerequisiteRequirement) error {
	return db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		now := time.Now()
		ids := make([]string, 0, len(reqs))
		for i, req := range reqs {
			ids = append(ids, req.ID)
			sql, args, err := r.sb.Insert("prerequisites").
				Columns("id", "name", "code", "credits", "description", "position", "updated_at").
				Values(req.ID, req.Name, req.Code, req.Credits, req.Description, i, now).
				Suffix(`ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code,
					credits = EXCLUDED.credits, description = EXCLUDED.description,
					position = EXCLUDED.position, updated_at = EXCLUDED.updated_at`).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build upsert prerequisite query: %w", err)
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				logger.Error().Err(err).Str("id", req.ID).Msg("Error upserting prerequisite")
				return fmt.Errorf("failed to upsert prerequisite %s: %w", req.ID, err)
			}
		}

		del := r.sb.Delete("prerequisites")
		if len(ids) > 0 {
			del = del.Where(squirrel.NotEq{"id": ids})
		}
		sql, args, err := del.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build prune prerequisites query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to prune prerequisites: %w", err)
		}
		return nil
	})
}
