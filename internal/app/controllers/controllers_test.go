package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildungsfortschritt/api/internal/app/controllers"
	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/app/repositories/inmem"
	"github.com/bildungsfortschritt/api/internal/app/routes"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/middleware"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
)

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	repos   *repositories.Repositories
	jwt     *auth.JWTService
	trainer *models.User
	learner *models.User
	peer    *models.User
	module  *models.Module
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	ctx := context.Background()
	logger := zerolog.Nop()
	repos := inmem.NewRepositories(inmem.NewDB())
	jwt := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 7 * 24 * time.Hour,
		Issuer:          "bildungsfortschritt-app",
		Audience:        []string{"web-app"},
	})
	svc := services.NewServices(repos, jwt, logger)

	s := &testServer{t: t, repos: repos, jwt: jwt}

	comp := &models.Competency{Code: "A1.1", Title: "Projektziele", Description: "a", Area: "a", Taxonomy: models.TaxonomyK3}
	require.NoError(t, repos.Competencies.Create(ctx, comp))
	s.module = &models.Module{Code: "M319", Title: "Applikationen", Type: models.ModuleTypeSchool, CompetencyIDs: []int64{comp.ID}}
	require.NoError(t, repos.Modules.Create(ctx, s.module))

	s.trainer = &models.User{Email: "bb@example.com", Password: "not-a-hash", IsBB: true}
	require.NoError(t, repos.Users.Create(ctx, s.trainer))
	s.learner = &models.User{Email: "lernender@example.com", Password: "not-a-hash", BerufsbildnerIDs: []int64{s.trainer.ID}}
	require.NoError(t, repos.Users.Create(ctx, s.learner))
	s.peer = &models.User{Email: "student1@example.com", Password: "not-a-hash"}
	require.NoError(t, repos.Users.Create(ctx, s.peer))

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(logger))
	routes.SetupSwagger(router, "1.0.0")
	routes.SetupRouter(router, &routes.Controllers{
		Auth:         controllers.NewAuthController(svc.Auth, svc.Users, false, logger),
		Users:        controllers.NewUserController(svc.Users, logger),
		Modules:      controllers.NewModuleController(svc.Modules, logger),
		Competencies: controllers.NewCompetencyController(svc.Competencies, logger),
		Health:       controllers.NewHealthController(nil, "test", "1.0.0"),
	}, middleware.NewAuthMiddleware(svc.Auth))
	router.NoRoute(middleware.NotFound)
	s.router = router
	return s
}

func (s *testServer) token(u *models.User) string {
	tok, err := s.jwt.GenerateAccessToken(u.ID)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path string, body interface{}, as *models.User, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(as))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == controllers.RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestAuthController_Register(t *testing.T) {
	s := newTestServer(t)

	t.Run("success sets refresh cookie", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/auth/register", map[string]interface{}{
			"email":    "neu@example.com",
			"password": "Secret123",
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.NotContains(t, w.Body.String(), "password")

		env := decode(t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "Benutzer erfolgreich registriert", env.Message)

		var data struct {
			User struct {
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"user"`
			AccessToken string `json:"accessToken"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "neu@example.com", data.User.Email)
		assert.Equal(t, "LERNENDER", data.User.Role)
		assert.NotEmpty(t, data.AccessToken)

		cookie := refreshCookie(w)
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/auth/register", map[string]interface{}{
			"email":    "BB@example.com",
			"password": "Secret123",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "RES_002", env.Error.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/auth/register", map[string]interface{}{
			"email":    "weak@example.com",
			"password": "secret",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VAL_001", env.Error.Code)
		assert.Equal(t, "password", env.Error.Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthController_LoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/auth/register", map[string]interface{}{"email": "login@example.com", "password": "Secret123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	wrong := s.do(http.MethodPost, "/api/auth/login", map[string]interface{}{"email": "login@example.com", "password": "Wrong1234"}, nil)
	unknown := s.do(http.MethodPost, "/api/auth/login", map[string]interface{}{"email": "nobody@example.com", "password": "Secret123"}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, decode(t, wrong).Error.Message, decode(t, unknown).Error.Message)
	assert.Nil(t, refreshCookie(wrong))

	ok := s.do(http.MethodPost, "/api/auth/login", map[string]interface{}{"email": "login@example.com", "password": "Secret123"}, nil)
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.NotNil(t, refreshCookie(ok))
}

func TestAuthController_Refresh(t *testing.T) {
	s := newTestServer(t)
	pair, err := s.jwt.GenerateTokenPair(s.learner.ID)
	require.NoError(t, err)

	t.Run("valid cookie", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/auth/refresh", nil, nil, &http.Cookie{Name: controllers.RefreshCookieName, Value: pair.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var data struct {
			AccessToken string `json:"accessToken"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
		assert.NotEmpty(t, data.AccessToken)
	})

	t.Run("missing cookie", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/auth/refresh", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "AUTH_007", decode(t, w).Error.Code)
	})

	t.Run("invalid cookie is cleared", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/auth/refresh", nil, nil, &http.Cookie{Name: controllers.RefreshCookieName, Value: pair.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		cookie := refreshCookie(w)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Less(t, cookie.MaxAge, 0)
	})
}

func TestAuthController_Logout(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	cookie := refreshCookie(w)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestAuthController_Me(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/auth/me", nil, s.learner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "not-a-hash")
	var data struct {
		Email         string  `json:"email"`
		Berufsbildner []int64 `json:"berufsbildner"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "lernender@example.com", data.Email)
	assert.Equal(t, []int64{s.trainer.ID}, data.Berufsbildner)
}

func TestUserRoutes_RoleGate(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/user", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/user", nil, s.learner).Code)

	w := s.do(http.MethodGet, "/api/user", nil, s.trainer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "not-a-hash")

	w = s.do(http.MethodGet, "/api/user/bb/users", nil, s.trainer)
	require.Equal(t, http.StatusOK, w.Code)
	var students []struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &students))
	require.Len(t, students, 1)
	assert.Equal(t, "lernender@example.com", students[0].Email)
}

func TestUserRoutes_ProgressAndCompletion(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/user/complete-module", map[string]interface{}{"moduleId": s.module.ID}, s.learner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/user/complete-module", map[string]interface{}{"moduleId": s.module.ID}, s.learner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/user/complete-module", map[string]interface{}{"moduleId": 9999}, s.learner)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/user/progress", nil, s.learner)
	require.Equal(t, http.StatusOK, w.Code)
	var own struct {
		OverallProgress struct {
			Percentage int `json:"percentage"`
		} `json:"overallProgress"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &own))
	assert.Equal(t, 100, own.OverallProgress.Percentage)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/user/progress/"+itoa(s.learner.ID), nil, s.trainer).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/user/progress/"+itoa(s.learner.ID), nil, s.peer).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/user/progress/abc", nil, s.learner).Code)

	w = s.do(http.MethodPost, "/api/user/uncomplete-module", map[string]interface{}{"moduleId": s.module.ID}, s.learner)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/user/uncomplete-module", map[string]interface{}{"moduleId": s.module.ID}, s.learner)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserRoutes_GetAndUpdate(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/user/"+itoa(s.learner.ID), nil, s.learner).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/user/"+itoa(s.learner.ID), nil, s.trainer).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/user/"+itoa(s.learner.ID), nil, s.peer).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/user/9999", nil, s.trainer).Code)

	w := s.do(http.MethodPut, "/api/user/"+itoa(s.learner.ID), map[string]interface{}{"isBB": true}, s.learner)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/user/"+itoa(s.learner.ID), map[string]interface{}{"firstName": "Anna", "lehrjahr": 2}, s.learner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, "/api/user/"+itoa(s.learner.ID), map[string]interface{}{"lehrjahr": 7}, s.learner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserRoutes_CreateAndDelete(t *testing.T) {
	s := newTestServer(t)

	body := map[string]interface{}{"email": "neu@example.com", "password": "Secret123", "firstName": "Neu"}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/user", body, s.learner).Code)

	w := s.do(http.MethodPost, "/api/user", body, s.trainer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID            int64   `json:"id"`
		Berufsbildner []int64 `json:"berufsbildner"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, []int64{s.trainer.ID}, created.Berufsbildner)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/user/"+itoa(created.ID), nil, s.trainer).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/user/"+itoa(created.ID), nil, s.trainer).Code)
}

func TestModuleRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/modules?type=BFS&q=m319", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var modules []struct {
		Code         string `json:"code"`
		Competencies []struct {
			Code string `json:"code"`
		} `json:"competencies"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &modules))
	require.Len(t, modules, 1)
	require.Len(t, modules[0].Competencies, 1)
	assert.Equal(t, "A1.1", modules[0].Competencies[0].Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/modules?type=XYZ", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/modules/with-progress", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/modules/with-progress", nil, s.learner).Code)

	newModule := map[string]interface{}{"code": "M426", "title": "Agile Methoden", "type": "BFS"}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/modules", newModule, s.learner).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/modules", newModule, s.trainer).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/modules", newModule, s.trainer).Code)
}

func TestCompetencyRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/competencies", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/competencies/area/A", nil, s.learner).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/competencies/area/x", nil, s.learner).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/competencies/overview", nil, s.learner).Code)

	w := s.do(http.MethodGet, "/api/competencies/overview", nil, s.trainer)
	require.Equal(t, http.StatusOK, w.Code)
	var overview struct {
		Overview struct {
			TotalCompetencies  int `json:"totalCompetencies"`
			CoveragePercentage int `json:"coveragePercentage"`
		} `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &overview))
	assert.Equal(t, 1, overview.Overview.TotalCompetencies)
	assert.Equal(t, 100, overview.Overview.CoveragePercentage)
}

func TestCompetencyRoutes_Export(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/competencies/overview/export?format=csv", nil, s.trainer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="leistungsziele_uebersicht_`)
	assert.Contains(t, w.Body.String(), "Abgedeckt")

	w = s.do(http.MethodGet, "/api/competencies/overview/export?format=xlsx", nil, s.trainer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/competencies/overview/export?format=pdf", nil, s.trainer).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/competencies/overview/export", nil, s.learner).Code)
}

func TestHealthAndFallback(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &health))
	assert.Equal(t, "OK", health.Status)
	assert.Equal(t, "memory", health.Database)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/ping", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api", nil, nil).Code)

	w = s.do(http.MethodGet, "/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/competencies/overview/export")

	w = s.do(http.MethodGet, "/api/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decode(t, w).Success)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
