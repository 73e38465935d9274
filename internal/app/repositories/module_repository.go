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

var moduleColumns = []string{"id", "code", "title", "type", "description", "duration", "created_at", "updated_at"}

// ModuleRepository handles module database operations
type ModuleRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewModuleRepository creates a new ModuleRepository
func NewModuleRepository(database *db.PostgresDB) *ModuleRepository {
	return &ModuleRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanModule(row pgx.Row) (*models.Module, error) {
	m := &models.Module{PrerequisiteIDs: []int64{}, CompetencyIDs: []int64{}}
	err := row.Scan(&m.ID, &m.Code, &m.Title, &m.Type, &m.Description, &m.Duration, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts the module with its competency and prerequisite links
func (r *ModuleRepository) Create(ctx context.Context, m *models.Module) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("modules").
			Columns("code", "title", "type", "description", "duration").
			Values(m.Code, m.Title, string(m.Type), m.Description, m.Duration).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building create module SQL")
			return fmt.Errorf("failed to build create module query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrModuleCodeExists
			}
			logger.Error().Err(err).Str("code", m.Code).Msg("Error executing create module query")
			return fmt.Errorf("error creating module: %w", err)
		}

		return r.replaceLinks(ctx, tx, m)
	})
}

func (r *ModuleRepository) replaceLinks(ctx context.Context, q querier, m *models.Module) error {
	links := []struct {
		table, column string
		ids           []int64
	}{
		{"module_competencies", "competency_id", m.CompetencyIDs},
		{"module_prerequisites", "prerequisite_id", m.PrerequisiteIDs},
	}

	for _, l := range links {
		sql, args, err := r.sb.Delete(l.table).Where(squirrel.Eq{"module_id": m.ID}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete %s query: %w", l.table, err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error clearing %s: %w", l.table, err)
		}

		if len(l.ids) == 0 {
			continue
		}
		insert := r.sb.Insert(l.table).Columns("module_id", l.column).Suffix("ON CONFLICT DO NOTHING")
		for _, id := range l.ids {
			insert = insert.Values(m.ID, id)
		}
		sql, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert %s query: %w", l.table, err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsForeignKeyViolation(err, "") || dberrors.IsCheckViolation(err) {
				return apperrors.NewBadRequestError(fmt.Sprintf("Ungültige Referenz in %s", l.column))
			}
			logger.Error().Err(err).Int64("moduleID", m.ID).Str("table", l.table).Msg("Error inserting module links")
			return fmt.Errorf("error inserting %s: %w", l.table, err)
		}
	}
	return nil
}

// GetByID retrieves a module by ID
func (r *ModuleRepository) GetByID(ctx context.Context, id int64) (*models.Module, error) {
	sql, args, err := r.sb.Select(moduleColumns...).From("modules").
		Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get module query: %w", err)
	}

	m, err := scanModule(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrModuleNotFound
		}
		logger.Error().Err(err).Int64("moduleID", id).Msg("Error scanning module row")
		return nil, fmt.Errorf("error getting module by ID: %w", err)
	}

	if err := r.attachLinks(ctx, []*models.Module{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByIDs returns the modules that exist among ids
func (r *ModuleRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Module, error) {
	if len(ids) == 0 {
		return []*models.Module{}, nil
	}
	return r.query(ctx, r.sb.Select(moduleColumns...).From("modules").Where(squirrel.Eq{"id": ids}))
}

// List returns modules ordered by code
func (r *ModuleRepository) List(ctx context.Context, filter ModuleFilter) ([]*models.Module, error) {
	q := r.sb.Select(moduleColumns...).From("modules")
	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"type": string(filter.Type)})
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where(squirrel.Or{squirrel.ILike{"code": like}, squirrel.ILike{"title": like}})
	}
	return r.query(ctx, q)
}

func (r *ModuleRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Module, error) {
	sql, args, err := q.OrderBy("code ASC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list modules SQL")
		return nil, fmt.Errorf("failed to build list modules query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list modules query")
		return nil, fmt.Errorf("error querying modules: %w", err)
	}

	out := []*models.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning module row: %w", err)
		}
		out = append(out, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating module rows: %w", err)
	}

	if err := r.attachLinks(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ModuleRepository) attachLinks(ctx context.Context, modules []*models.Module) error {
	if len(modules) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Module, len(modules))
	ids := make([]int64, 0, len(modules))
	for _, m := range modules {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	load := func(table, column string, add func(m *models.Module, id int64)) error {
		sql, args, err := r.sb.Select("module_id", column).From(table).
			Where(squirrel.Eq{"module_id": ids}).OrderBy(column).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build %s query: %w", table, err)
		}
		rows, err := r.db.Pool.Query(ctx, sql, args...)
		if err != nil {
			logger.Error().Err(err).Str("table", table).Msg("Error querying module links")
			return fmt.Errorf("error querying %s: %w", table, err)
		}
		defer rows.Close()
		for rows.Next() {
			var moduleID, linked int64
			if err := rows.Scan(&moduleID, &linked); err != nil {
				return fmt.Errorf("error scanning %s row: %w", table, err)
			}
			add(byID[moduleID], linked)
		}
		return rows.Err()
	}

	if err := load("module_competencies", "competency_id", func(m *models.Module, id int64) {
		m.CompetencyIDs = append(m.CompetencyIDs, id)
	}); err != nil {
		return err
	}
	return load("module_prerequisites", "prerequisite_id", func(m *models.Module, id int64) {
		m.PrerequisiteIDs = append(m.PrerequisiteIDs, id)
	})
}

// Update overwrites the module and replaces its links
func (r *ModuleRepository) Update(ctx context.Context, m *models.Module) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("modules").
			SetMap(map[string]interface{}{
				"code":        m.Code,
				"title":       m.Title,
				"type":        string(m.Type),
				"description": m.Description,
				"duration":    m.Duration,
				"updated_at":  squirrel.Expr("NOW()"),
			}).
			Where(squirrel.Eq{"id": m.ID}).
			Suffix("RETURNING created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update module query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrModuleNotFound
			}
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrModuleCodeExists
			}
			logger.Error().Err(err).Int64("moduleID", m.ID).Msg("Error executing update module query")
			return fmt.Errorf("error updating module: %w", err)
		}

		return r.replaceLinks(ctx, tx, m)
	})
}

// Delete removes a module; links and completions cascade
func (r *ModuleRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("modules").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete module query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("moduleID", id).Msg("Error executing delete module query")
		return fmt.Errorf("error deleting module: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrModuleNotFound
	}
	return nil
}
