package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/db"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/dberrors"
	"github.com/bildungsfortschritt/api/internal/pkg/logger"
)

var competencyColumns = []string{"id", "code", "title", "description", "area", "taxonomy", "created_at", "updated_at"}

// CompetencyRepository handles competency database operations
type CompetencyRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewCompetencyRepository creates a new CompetencyRepository
func NewCompetencyRepository(database *db.PostgresDB) *CompetencyRepository {
	return &CompetencyRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanCompetency(row pgx.Row) (*models.Competency, error) {
	c := &models.Competency{}
	err := row.Scan(&c.ID, &c.Code, &c.Title, &c.Description, &c.Area, &c.Taxonomy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a competency
func (r *CompetencyRepository) Create(ctx context.Context, c *models.Competency) error {
	sql, args, err := r.sb.Insert("competencies").
		Columns("code", "title", "description", "area", "taxonomy").
		Values(c.Code, c.Title, c.Description, string(c.Area), string(c.Taxonomy)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create competency SQL")
		return fmt.Errorf("failed to build create competency query: %w", err)
	}

	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrCompetencyCodeExists
		}
		logger.Error().Err(err).Str("code", c.Code).Msg("Error executing create competency query")
		return fmt.Errorf("error creating competency: %w", err)
	}
	return nil
}

// GetByID retrieves a competency by ID
func (r *CompetencyRepository) GetByID(ctx context.Context, id int64) (*models.Competency, error) {
	sql, args, err := r.sb.Select(competencyColumns...).From("competencies").
		Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get competency query: %w", err)
	}

	c, err := scanCompetency(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCompetencyNotFound
		}
		logger.Error().Err(err).Int64("competencyID", id).Msg("Error scanning competency row")
		return nil, fmt.Errorf("error getting competency by ID: %w", err)
	}
	return c, nil
}

// GetByIDs returns the competencies that exist among ids
func (r *CompetencyRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Competency, error) {
	if len(ids) == 0 {
		return []*models.Competency{}, nil
	}
	return r.query(ctx, r.sb.Select(competencyColumns...).From("competencies").Where(squirrel.Eq{"id": ids}))
}

// List returns competencies ordered by area, then code
func (r *CompetencyRepository) List(ctx context.Context, filter CompetencyFilter) ([]*models.Competency, error) {
	q := r.sb.Select(competencyColumns...).From("competencies")
	if filter.Area != "" {
		q = q.Where(squirrel.Eq{"area": string(filter.Area)})
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": like},
			squirrel.ILike{"title": like},
			squirrel.ILike{"description": like},
		})
	}
	return r.query(ctx, q)
}

func (r *CompetencyRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Competency, error) {
	sql, args, err := q.OrderBy("area ASC", "code ASC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list competencies SQL")
		return nil, fmt.Errorf("failed to build list competencies query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list competencies query")
		return nil, fmt.Errorf("error querying competencies: %w", err)
	}
	defer rows.Close()

	out := []*models.Competency{}
	for rows.Next() {
		c, err := scanCompetency(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning competency row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competency rows: %w", err)
	}
	return out, nil
}

// Update overwrites the mutable fields of a competency
func (r *CompetencyRepository) Update(ctx context.Context, c *models.Competency) error {
	sql, args, err := r.sb.Update("competencies").
		SetMap(map[string]interface{}{
			"code":        c.Code,
			"title":       c.Title,
			"description": c.Description,
			"area":        string(c.Area),
			"taxonomy":    string(c.Taxonomy),
			"updated_at":  squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update competency query: %w", err)
	}

	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrCompetencyNotFound
		}
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrCompetencyCodeExists
		}
		logger.Error().Err(err).Int64("competencyID", c.ID).Msg("Error executing update competency query")
		return fmt.Errorf("error updating competency: %w", err)
	}
	return nil
}

// Delete removes a competency; module references cascade
func (r *CompetencyRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("competencies").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete competency query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("competencyID", id).Msg("Error executing delete competency query")
		return fmt.Errorf("error deleting competency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCompetencyNotFound
	}
	return nil
}
