package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

type userRepository struct {
	db *DB
}

// NewUserRepository returns a user repository on db
func NewUserRepository(db *DB) repositories.IUserRepository {
	return &userRepository{db: db}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.BerufsbildnerIDs = append([]int64{}, u.BerufsbildnerIDs...)
	c.CompletedModules = append([]models.CompletedModule{}, u.CompletedModules...)
	for i := range c.CompletedModules {
		c.CompletedModules[i].Module = nil
	}
	if u.Lehrjahr != nil {
		l := *u.Lehrjahr
		c.Lehrjahr = &l
	}
	return &c
}

func (repo *userRepository) emailTaken(email string, exceptID int64) bool {
	for _, u := range repo.db.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *userRepository) checkTrainers(ids []int64) error {
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			return apperrors.NewBadRequestError("Unbekannter Berufsbildner")
		}
	}
	return nil
}

func (repo *userRepository) Create(_ context.Context, user *models.User) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.emailTaken(user.Email, 0) {
		return apperrors.ErrEmailAlreadyExists
	}
	if err := repo.checkTrainers(user.BerufsbildnerIDs); err != nil {
		return err
	}

	now := repo.db.now()
	user.ID = repo.db.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	user.BerufsbildnerIDs = copyIDs(user.BerufsbildnerIDs)
	user.CompletedModules = []models.CompletedModule{}
	repo.db.users[user.ID] = cloneUser(user)
	return nil
}

func (repo *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	u, ok := repo.db.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (repo *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, u := range repo.db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (repo *userRepository) EmailExists(_ context.Context, email string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.emailTaken(email, 0), nil
}

func (repo *userRepository) query(keep func(*models.User) bool) []*models.User {
	out := []*models.User{}
	for _, u := range repo.db.users {
		if keep(u) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (repo *userRepository) List(_ context.Context) ([]*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(func(*models.User) bool { return true }), nil
}

func (repo *userRepository) ListByTrainer(_ context.Context, trainerID int64) ([]*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(func(u *models.User) bool { return u.HasTrainer(trainerID) }), nil
}

func (repo *userRepository) Update(_ context.Context, user *models.User) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.users[user.ID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if repo.emailTaken(user.Email, user.ID) {
		return apperrors.ErrEmailAlreadyExists
	}
	if err := repo.checkTrainers(user.BerufsbildnerIDs); err != nil {
		return err
	}

	stored.Email = user.Email
	stored.IsBB = user.IsBB
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Lehrjahr = user.Lehrjahr
	stored.BerufsbildnerIDs = copyIDs(user.BerufsbildnerIDs)
	stored.UpdatedAt = repo.db.now()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (repo *userRepository) Delete(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(repo.db.users, id)
	for _, u := range repo.db.users {
		u.BerufsbildnerIDs = removeID(u.BerufsbildnerIDs, id)
	}
	return nil
}

func (repo *userRepository) AddCompletedModule(_ context.Context, userID, moduleID int64, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	u, ok := repo.db.users[userID]
	if !ok {
		return false, apperrors.ErrUserNotFound
	}
	if _, ok := repo.db.modules[moduleID]; !ok {
		return false, apperrors.ErrModuleNotFound
	}
	if u.HasCompleted(moduleID) {
		return false, nil
	}
	u.CompletedModules = append(u.CompletedModules, models.CompletedModule{ModuleID: moduleID, CompletedAt: at})
	return true, nil
}

func (repo *userRepository) RemoveCompletedModule(_ context.Context, userID, moduleID int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	u, ok := repo.db.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	kept := u.CompletedModules[:0]
	for _, cm := range u.CompletedModules {
		if cm.ModuleID != moduleID {
			kept = append(kept, cm)
		}
	}
	u.CompletedModules = kept
	return nil
}
