package repositories

import (
	"context"
	"time"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/db"
)

// IUserRepository defines the user store. Users returned by it carry their
// Berufsbildner ids and completed modules (without the Module pointer).
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*models.User, error)
	ListByTrainer(ctx context.Context, trainerID int64) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error

	// AddCompletedModule inserts the completion if absent and reports whether it did
	AddCompletedModule(ctx context.Context, userID, moduleID int64, at time.Time) (bool, error)
	// RemoveCompletedModule is a no-op when the module is not completed
	RemoveCompletedModule(ctx context.Context, userID, moduleID int64) error
}

// CompetencyFilter narrows competency listings; zero values match everything
type CompetencyFilter struct {
	Area  models.Area
	Query string
}

// ICompetencyRepository defines the competency catalog store
type ICompetencyRepository interface {
	Create(ctx context.Context, c *models.Competency) error
	GetByID(ctx context.Context, id int64) (*models.Competency, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Competency, error)
	List(ctx context.Context, filter CompetencyFilter) ([]*models.Competency, error)
	Update(ctx context.Context, c *models.Competency) error
	Delete(ctx context.Context, id int64) error
}

// ModuleFilter narrows module listings; zero values match everything
type ModuleFilter struct {
	Type  models.ModuleType
	Query string
}

// IModuleRepository defines the module store. Modules carry competency and
// prerequisite ids but not populated competencies.
type IModuleRepository interface {
	Create(ctx context.Context, m *models.Module) error
	GetByID(ctx context.Context, id int64) (*models.Module, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Module, error)
	List(ctx context.Context, filter ModuleFilter) ([]*models.Module, error)
	Update(ctx context.Context, m *models.Module) error
	Delete(ctx context.Context, id int64) error
}

// Repositories holds all the repository instances
type Repositories struct {
	Users        IUserRepository
	Competencies ICompetencyRepository
	Modules      IModuleRepository
}

// NewRepositories wires the PostgreSQL implementations
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(database),
		Competencies: NewCompetencyRepository(database),
		Modules:      NewModuleRepository(database),
	}
}
