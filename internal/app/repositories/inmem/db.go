// Package inmem implements the repository interfaces on mutex guarded maps.
// It backs the "memory" database driver and the service and handler tests.
package inmem

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
)

// DB holds every table behind one lock so cascades stay consistent
type DB struct {
	mutex sync.RWMutex
	pk    int64

	users        map[int64]*models.User
	competencies map[int64]*models.Competency
	modules      map[int64]*models.Module

	now func() time.Time
}

// NewDB creates an empty store
func NewDB() *DB {
	return &DB{
		users:        make(map[int64]*models.User),
		competencies: make(map[int64]*models.Competency),
		modules:      make(map[int64]*models.Module),
		now:          time.Now,
	}
}

// NewRepositories wires all in-memory repositories on one store
func NewRepositories(db *DB) *repositories.Repositories {
	return &repositories.Repositories{
		Users:        NewUserRepository(db),
		Competencies: NewCompetencyRepository(db),
		Modules:      NewModuleRepository(db),
	}
}

func (db *DB) nextID() int64 {
	db.pk++
	return db.pk
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func copyIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
