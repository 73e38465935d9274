package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/app/repositories/inmem"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
)

type env struct {
	ctx      context.Context
	repos    *repositories.Repositories
	svc      *services.Services
	jwt      *auth.JWTService
	trainer  *models.User
	learner  *models.User
	peer     *models.User
	modules  map[string]*models.Module
	catalogs map[string]*models.Competency
}

// newEnv builds a catalog of three competencies (two in area a, one in b)
// and two modules: M100 covers A1.1, M200 covers B1.1.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	repos := inmem.NewRepositories(inmem.NewDB())
	jwt := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 7 * 24 * time.Hour,
		Issuer:          "bildungsfortschritt-app",
		Audience:        []string{"web-app"},
	})

	e := &env{
		ctx:      ctx,
		repos:    repos,
		svc:      services.NewServices(repos, jwt, zerolog.Nop()),
		jwt:      jwt,
		modules:  map[string]*models.Module{},
		catalogs: map[string]*models.Competency{},
	}

	for _, c := range []*models.Competency{
		{Code: "A1.1", Title: "Projektziele", Description: "a", Area: "a", Taxonomy: models.TaxonomyK3},
		{Code: "A1.2", Title: "Projektplanung", Description: "a", Area: "a", Taxonomy: models.TaxonomyK3},
		{Code: "B1.1", Title: "Betriebssystem", Description: "b", Area: "b", Taxonomy: models.TaxonomyK3},
	} {
		require.NoError(t, repos.Competencies.Create(ctx, c))
		e.catalogs[c.Code] = c
	}
	for _, m := range []*models.Module{
		{Code: "M100", Title: "Projekte", Type: models.ModuleTypeSchool, CompetencyIDs: []int64{e.catalogs["A1.1"].ID}},
		{Code: "M200", Title: "Systeme", Type: models.ModuleTypeCourse, CompetencyIDs: []int64{e.catalogs["B1.1"].ID}},
	} {
		require.NoError(t, repos.Modules.Create(ctx, m))
		e.modules[m.Code] = m
	}

	e.trainer = &models.User{Email: "bb@example.com", IsBB: true, FirstName: "Max"}
	require.NoError(t, repos.Users.Create(ctx, e.trainer))
	e.learner = &models.User{Email: "lernender@example.com", BerufsbildnerIDs: []int64{e.trainer.ID}}
	require.NoError(t, repos.Users.Create(ctx, e.learner))
	e.peer = &models.User{Email: "student1@example.com"}
	require.NoError(t, repos.Users.Create(ctx, e.peer))
	return e
}

func TestAuthService_Register(t *testing.T) {
	e := newEnv(t)

	result, err := e.svc.Auth.Register(e.ctx, &dto.RegisterRequest{Email: " Neu@Example.com ", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "neu@example.com", result.User.Email)
	assert.Equal(t, models.RoleApprentice, result.User.Role())
	assert.NotEqual(t, "Secret123", result.User.Password)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	claims, err := e.jwt.Validate(result.Tokens.AccessToken, auth.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)

	_, err = e.svc.Auth.Register(e.ctx, &dto.RegisterRequest{Email: "neu@example.com", Password: "Secret123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	msg, ok := apperrors.UserMessage(err)
	assert.True(t, ok)
	assert.Equal(t, services.MsgEmailTaken, msg)
}

func TestAuthService_Login(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Auth.Register(e.ctx, &dto.RegisterRequest{Email: "login@example.com", Password: "Secret123", IsBB: true})
	require.NoError(t, err)

	result, err := e.svc.Auth.Login(e.ctx, &dto.LoginRequest{Email: "LOGIN@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.True(t, result.User.IsBB)

	_, wrongPassword := e.svc.Auth.Login(e.ctx, &dto.LoginRequest{Email: "login@example.com", Password: "Wrong1234"})
	_, unknownEmail := e.svc.Auth.Login(e.ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "Secret123"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_Refresh(t *testing.T) {
	e := newEnv(t)
	pair, err := e.jwt.GenerateTokenPair(e.learner.ID)
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		access, err := e.svc.Auth.Refresh(e.ctx, pair.RefreshToken)
		require.NoError(t, err)
		claims, err := e.jwt.Validate(access, auth.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, e.learner.ID, claims.UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := e.svc.Auth.Refresh(e.ctx, "")
		assert.True(t, errors.Is(err, apperrors.ErrTokenNotFound))
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := e.svc.Auth.Refresh(e.ctx, pair.AccessToken)
		assert.True(t, errors.Is(err, apperrors.ErrTokenInvalid))
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, e.repos.Users.Delete(e.ctx, e.learner.ID))
		_, err := e.svc.Auth.Refresh(e.ctx, pair.RefreshToken)
		assert.True(t, errors.Is(err, apperrors.ErrTokenInvalid))
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	e := newEnv(t)
	access, err := e.jwt.GenerateAccessToken(e.peer.ID)
	require.NoError(t, err)

	user, err := e.svc.Auth.Authenticate(e.ctx, access)
	require.NoError(t, err)
	assert.Equal(t, e.peer.Email, user.Email)

	require.NoError(t, e.repos.Users.Delete(e.ctx, e.peer.ID))
	_, err = e.svc.Auth.Authenticate(e.ctx, access)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestUserService_CompleteModule(t *testing.T) {
	e := newEnv(t)
	m100 := e.modules["M100"]

	resp, err := e.svc.Users.CompleteModule(e.ctx, e.learner, m100.ID)
	require.NoError(t, err)
	require.Len(t, resp.CompletedModules, 1)
	assert.Equal(t, m100.ID, resp.CompletedModules[0].ModuleID)
	assert.Equal(t, 1, resp.OverallProgress.Completed)
	assert.Equal(t, 3, resp.OverallProgress.Total)
	assert.Equal(t, 33, resp.OverallProgress.Percentage)

	_, err = e.svc.Users.CompleteModule(e.ctx, e.learner, m100.ID)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.EqualError(t, err, "Modul wurde bereits abgeschlossen")

	_, err = e.svc.Users.CompleteModule(e.ctx, e.learner, 9999)
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}

func TestUserService_UncompleteModule(t *testing.T) {
	e := newEnv(t)
	m100, m200 := e.modules["M100"], e.modules["M200"]

	_, err := e.svc.Users.CompleteModule(e.ctx, e.learner, m100.ID)
	require.NoError(t, err)

	resp, err := e.svc.Users.UncompleteModule(e.ctx, e.learner, m100.ID)
	require.NoError(t, err)
	assert.Empty(t, resp.CompletedModules)
	assert.Equal(t, 0, resp.OverallProgress.Percentage)

	// not completed: no-op
	_, err = e.svc.Users.UncompleteModule(e.ctx, e.learner, m200.ID)
	assert.NoError(t, err)

	_, err = e.svc.Users.UncompleteModule(e.ctx, e.learner, 9999)
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}

func TestUserService_Progress(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Users.CompleteModule(e.ctx, e.learner, e.modules["M100"].ID)
	require.NoError(t, err)

	t.Run("own progress", func(t *testing.T) {
		resp, err := e.svc.Users.Progress(e.ctx, e.learner, 0)
		require.NoError(t, err)
		assert.Equal(t, e.learner.ID, resp.User.ID)

		require.Contains(t, resp.Progress, "a")
		assert.Equal(t, 1, resp.Progress["a"].Completed)
		assert.Equal(t, 2, resp.Progress["a"].Total)
		assert.Equal(t, 50, resp.Progress["a"].Percentage)
		assert.Equal(t, 0, resp.Progress["b"].Percentage)
		assert.Equal(t, 33, resp.Overall.Percentage)
	})

	t.Run("assigned trainer", func(t *testing.T) {
		resp, err := e.svc.Users.Progress(e.ctx, e.trainer, e.learner.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Overall.Completed)
	})

	t.Run("peer is forbidden", func(t *testing.T) {
		_, err := e.svc.Users.Progress(e.ctx, e.peer, e.learner.ID)
		assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	})

	t.Run("progress is idempotent", func(t *testing.T) {
		first, err := e.svc.Users.Progress(e.ctx, e.learner, 0)
		require.NoError(t, err)
		second, err := e.svc.Users.Progress(e.ctx, e.learner, 0)
		require.NoError(t, err)
		assert.Equal(t, first.Overall, second.Overall)
	})
}

func TestUserService_Create(t *testing.T) {
	e := newEnv(t)

	created, err := e.svc.Users.Create(e.ctx, e.trainer, &dto.CreateUserRequest{
		Email:    "neu@example.com",
		Password: "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{e.trainer.ID}, created.BerufsbildnerIDs)

	trainer, err := e.svc.Users.Create(e.ctx, e.trainer, &dto.CreateUserRequest{
		Email:    "bb2@example.com",
		Password: "Secret123",
		IsBB:     true,
	})
	require.NoError(t, err)
	assert.Empty(t, trainer.BerufsbildnerIDs)

	_, err = e.svc.Users.Create(e.ctx, e.trainer, &dto.CreateUserRequest{
		Email:            "neu2@example.com",
		Password:         "Secret123",
		BerufsbildnerIDs: []int64{e.peer.ID},
	})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed), "peer is not a trainer")

	_, err = e.svc.Users.Create(e.ctx, e.trainer, &dto.CreateUserRequest{Email: "NEU@example.com", Password: "Secret123"})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.EqualError(t, err, services.MsgEmailTaken)
}

func TestUserService_Update(t *testing.T) {
	e := newEnv(t)
	yes, no := true, false

	t.Run("apprentice edits own profile", func(t *testing.T) {
		name := "Anna"
		lj := 2
		updated, err := e.svc.Users.Update(e.ctx, e.learner, e.learner.ID, &dto.UpdateUserRequest{
			FirstName: &name,
			Lehrjahr:  &lj,
			IsBB:      &no, // unchanged, allowed
		})
		require.NoError(t, err)
		assert.Equal(t, "Anna", updated.FirstName)
		require.NotNil(t, updated.Lehrjahr)
		assert.Equal(t, 2, *updated.Lehrjahr)
	})

	t.Run("apprentice cannot promote themself", func(t *testing.T) {
		_, err := e.svc.Users.Update(e.ctx, e.learner, e.learner.ID, &dto.UpdateUserRequest{IsBB: &yes})
		assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	})

	t.Run("apprentice cannot change trainers", func(t *testing.T) {
		ids := []int64{}
		_, err := e.svc.Users.Update(e.ctx, e.learner, e.learner.ID, &dto.UpdateUserRequest{BerufsbildnerIDs: &ids})
		assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	})

	t.Run("apprentice cannot edit others", func(t *testing.T) {
		name := "X"
		_, err := e.svc.Users.Update(e.ctx, e.peer, e.learner.ID, &dto.UpdateUserRequest{FirstName: &name})
		assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	})

	t.Run("trainer assigns peer", func(t *testing.T) {
		ids := []int64{e.trainer.ID}
		updated, err := e.svc.Users.Update(e.ctx, e.trainer, e.peer.ID, &dto.UpdateUserRequest{BerufsbildnerIDs: &ids})
		require.NoError(t, err)
		assert.Equal(t, ids, updated.BerufsbildnerIDs)

		students, err := e.svc.Users.ListStudents(e.ctx, e.trainer)
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	t.Run("duplicate email", func(t *testing.T) {
		email := "bb@example.com"
		_, err := e.svc.Users.Update(e.ctx, e.learner, e.learner.ID, &dto.UpdateUserRequest{Email: &email})
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	})
}

func TestUserService_ListStudentsPopulatesModules(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Users.CompleteModule(e.ctx, e.learner, e.modules["M100"].ID)
	require.NoError(t, err)

	students, err := e.svc.Users.ListStudents(e.ctx, e.trainer)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Len(t, students[0].CompletedModules, 1)
	require.NotNil(t, students[0].CompletedModules[0].Module)
	assert.Equal(t, "M100", students[0].CompletedModules[0].Module.Code)
	require.Len(t, students[0].CompletedModules[0].Module.Competencies, 1)
}

func TestModuleService_WithProgress(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Users.CompleteModule(e.ctx, e.learner, e.modules["M200"].ID)
	require.NoError(t, err)

	resp, err := e.svc.Modules.WithProgress(e.ctx, e.learner)
	require.NoError(t, err)
	require.Len(t, resp.Modules, 2)
	assert.Equal(t, "M100", resp.Modules[0].Code)
	assert.False(t, resp.Modules[0].Completed)
	assert.True(t, resp.Modules[1].Completed)
	assert.NotNil(t, resp.Modules[1].CompletedAt)
	assert.Equal(t, 50, resp.Stats.Percentage)
}

func TestModuleService_Validation(t *testing.T) {
	e := newEnv(t)
	m100 := e.modules["M100"]

	_, err := e.svc.Modules.Update(e.ctx, m100.ID, &dto.ModuleRequest{
		Code: "M100", Title: "Projekte", Type: "BFS", Prerequisites: []int64{m100.ID},
	})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	_, err = e.svc.Modules.Create(e.ctx, &dto.ModuleRequest{
		Code: "M300", Title: "Neu", Type: "BFS", CompetencyIDs: []int64{9999},
	})
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))

	created, err := e.svc.Modules.Create(e.ctx, &dto.ModuleRequest{
		Code: "M300", Title: "Neu", Type: "BAND", CompetencyIDs: []int64{e.catalogs["A1.2"].ID},
	})
	require.NoError(t, err)
	require.Len(t, created.Competencies, 1)
	assert.Equal(t, "A1.2", created.Competencies[0].Code)

	_, err = e.svc.Modules.Create(e.ctx, &dto.ModuleRequest{Code: "M300", Title: "Doppelt", Type: "BFS"})
	assert.True(t, errors.Is(err, apperrors.ErrModuleCodeExists))
}

func TestCompetencyService_Coverage(t *testing.T) {
	e := newEnv(t)

	byArea, err := e.svc.Competencies.ByArea(e.ctx, "A")
	require.NoError(t, err)
	require.Len(t, byArea, 2)
	assert.True(t, byArea[0].IsCovered)
	assert.False(t, byArea[1].IsCovered)

	_, err = e.svc.Competencies.ByArea(e.ctx, "z")
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))

	overview, err := e.svc.Competencies.Overview(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, overview.Overview.TotalCompetencies)
	assert.Equal(t, 2, overview.Overview.CoveredCount)
	assert.Equal(t, 67, overview.Overview.CoveragePercentage)

	file, err := e.svc.Competencies.Export(e.ctx, "xlsx")
	require.NoError(t, err)
	assert.Contains(t, file.Name, ".xlsx")
	assert.NotEmpty(t, file.Data)
}

func TestCompetencyService_CRUD(t *testing.T) {
	e := newEnv(t)

	created, err := e.svc.Competencies.Create(e.ctx, &dto.CompetencyRequest{
		Code: "H1.1", Title: "Dokumentieren", Description: "h", Area: "H", Taxonomy: "K2",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Area("h"), created.Area)

	_, err = e.svc.Competencies.Create(e.ctx, &dto.CompetencyRequest{
		Code: "H1.1", Title: "Doppelt", Description: "h", Area: "h", Taxonomy: "K2",
	})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	require.NoError(t, e.svc.Competencies.Delete(e.ctx, e.catalogs["A1.1"].ID))
	module, err := e.svc.Modules.Get(e.ctx, e.modules["M100"].ID)
	require.NoError(t, err)
	assert.Empty(t, module.CompetencyIDs, "references cascade")
}
