package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/db"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/dberrors"
	"github.com/bildungsfortschritt/api/internal/pkg/logger"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var userColumns = []string{"id", "email", "password", "is_bb", "first_name", "last_name", "lehrjahr", "created_at", "updated_at"}

// UserRepository handles user database operations
type UserRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(database *db.PostgresDB) *UserRepository {
	return &UserRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{BerufsbildnerIDs: []int64{}, CompletedModules: []models.CompletedModule{}}
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.IsBB, &u.FirstName, &u.LastName, &u.Lehrjahr, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts the user and its trainer links in one transaction
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("users").
			Columns("email", "password", "is_bb", "first_name", "last_name", "lehrjahr").
			Values(user.Email, user.Password, user.IsBB, user.FirstName, user.LastName, user.Lehrjahr).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building create user SQL")
			return fmt.Errorf("failed to build create user query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrEmailAlreadyExists
			}
			logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
			return fmt.Errorf("error creating user: %w", err)
		}

		return r.replaceTrainers(ctx, tx, user.ID, user.BerufsbildnerIDs)
	})
}

func (r *UserRepository) replaceTrainers(ctx context.Context, q querier, userID int64, trainerIDs []int64) error {
	sql, args, err := r.sb.Delete("user_trainers").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete trainers query: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error clearing trainers: %w", err)
	}

	if len(trainerIDs) == 0 {
		return nil
	}

	insert := r.sb.Insert("user_trainers").Columns("user_id", "trainer_id").Suffix("ON CONFLICT DO NOTHING")
	for _, tid := range trainerIDs {
		insert = insert.Values(userID, tid)
	}
	sql, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert trainers query: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyViolation(err, "") {
			return apperrors.NewBadRequestError("Unbekannter Berufsbildner")
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error inserting trainer links")
		return fmt.Errorf("error inserting trainers: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if err := r.attachRelations(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	sql, args, err := r.sb.Select("1").From("users").Where(squirrel.Eq{"email": email}).
		Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build email exists query: %w", err)
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Msg("Error checking email existence")
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) listWhere(ctx context.Context, query squirrel.SelectBuilder) ([]*models.User, error) {
	sql, args, err := query.OrderBy("u.last_name ASC", "u.first_name ASC", "u.id ASC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list users SQL")
		return nil, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list users query")
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	if err := r.attachRelations(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) selectUsers() squirrel.SelectBuilder {
	cols := make([]string, len(userColumns))
	for i, c := range userColumns {
		cols[i] = "u." + c
	}
	return r.sb.Select(cols...).From("users u")
}

// List returns every user
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	return r.listWhere(ctx, r.selectUsers())
}

// ListByTrainer returns the users that list trainerID as Berufsbildner
func (r *UserRepository) ListByTrainer(ctx context.Context, trainerID int64) ([]*models.User, error) {
	return r.listWhere(ctx, r.selectUsers().
		Join("user_trainers ut ON ut.user_id = u.id").
		Where(squirrel.Eq{"ut.trainer_id": trainerID}))
}

// attachRelations loads trainer ids and completions for all users in two queries
func (r *UserRepository) attachRelations(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[int64]*models.User, len(users))
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	sql, args, err := r.sb.Select("user_id", "trainer_id").From("user_trainers").
		Where(squirrel.Eq{"user_id": ids}).OrderBy("trainer_id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build trainers query: %w", err)
	}
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying trainer links")
		return fmt.Errorf("error querying trainers: %w", err)
	}
	for rows.Next() {
		var userID, trainerID int64
		if err := rows.Scan(&userID, &trainerID); err != nil {
			rows.Close()
			return fmt.Errorf("error scanning trainer link: %w", err)
		}
		byID[userID].BerufsbildnerIDs = append(byID[userID].BerufsbildnerIDs, trainerID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating trainer links: %w", err)
	}

	sql, args, err = r.sb.Select("user_id", "module_id", "completed_at").From("user_completed_modules").
		Where(squirrel.Eq{"user_id": ids}).OrderBy("completed_at", "module_id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build completions query: %w", err)
	}
	rows, err = r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying completed modules")
		return fmt.Errorf("error querying completions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID int64
		var cm models.CompletedModule
		if err := rows.Scan(&userID, &cm.ModuleID, &cm.CompletedAt); err != nil {
			return fmt.Errorf("error scanning completion: %w", err)
		}
		byID[userID].CompletedModules = append(byID[userID].CompletedModules, cm)
	}
	return rows.Err()
}

// Update writes profile fields and replaces the trainer links
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("users").
			SetMap(map[string]interface{}{
				"email":      user.Email,
				"is_bb":      user.IsBB,
				"first_name": user.FirstName,
				"last_name":  user.LastName,
				"lehrjahr":   user.Lehrjahr,
				"updated_at": squirrel.Expr("NOW()"),
			}).
			Where(squirrel.Eq{"id": user.ID}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building update user SQL")
			return fmt.Errorf("failed to build update user query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&user.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrUserNotFound
			}
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrEmailAlreadyExists
			}
			logger.Error().Err(err).Int64("userID", user.ID).Msg("Error executing update user query")
			return fmt.Errorf("error updating user: %w", err)
		}

		return r.replaceTrainers(ctx, tx, user.ID, user.BerufsbildnerIDs)
	})
}

// Delete removes a user; completions and trainer links cascade
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete user query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", id).Msg("Error executing delete user query")
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// AddCompletedModule relies on the (user_id, module_id) key so that two
// concurrent completions of the same module insert exactly one row.
func (r *UserRepository) AddCompletedModule(ctx context.Context, userID, moduleID int64, at time.Time) (bool, error) {
	sql, args, err := r.sb.Insert("user_completed_modules").
		Columns("user_id", "module_id", "completed_at").
		Values(userID, moduleID, at).
		Suffix("ON CONFLICT (user_id, module_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build complete module query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		switch {
		case dberrors.IsForeignKeyViolation(err, "user_completed_modules_module_id_fkey"):
			return false, apperrors.ErrModuleNotFound
		case dberrors.IsForeignKeyViolation(err, "user_completed_modules_user_id_fkey"):
			return false, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("userID", userID).Int64("moduleID", moduleID).Msg("Error completing module")
		return false, fmt.Errorf("error completing module: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveCompletedModule deletes a completion if present
func (r *UserRepository) RemoveCompletedModule(ctx context.Context, userID, moduleID int64) error {
	sql, args, err := r.sb.Delete("user_completed_modules").
		Where(squirrel.Eq{"user_id": userID, "module_id": moduleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build uncomplete module query: %w", err)
	}
	if _, err := r.db.Pool.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Int64("moduleID", moduleID).Msg("Error uncompleting module")
		return fmt.Errorf("error uncompleting module: %w", err)
	}
	return nil
}
