package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bildungsfortschritt/api/internal/app/controllers"
	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/middleware"
)

// Controllers groups the handlers mounted under /api
type Controllers struct {
	Auth         *controllers.AuthController
	Users        *controllers.UserController
	Modules      *controllers.ModuleController
	Competencies *controllers.CompetencyController
	Health       *controllers.HealthController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl *Controllers, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")
	requireAuth := authMiddleware.JWTAuth()
	trainerOnly := authMiddleware.RoleRequired(models.RoleTrainer)

	api.GET("", ctrl.Health.Index)
	api.GET("/health", ctrl.Health.Health)
	api.GET("/ping", ctrl.Health.Ping)

	// --- Auth routes ---
	auth := api.Group("/auth")
	{
		auth.POST("/register", ctrl.Auth.Register)
		auth.POST("/login", ctrl.Auth.Login)
		auth.POST("/refresh", ctrl.Auth.RefreshToken)
		auth.POST("/logout", ctrl.Auth.Logout)
		auth.GET("/me", requireAuth, ctrl.Auth.Me)
	}

	// --- User routes (all authenticated) ---
	users := api.Group("/user", requireAuth)
	{
		users.GET("", trainerOnly, ctrl.Users.GetAllUsers)
		users.GET("/me", ctrl.Users.GetMe)
		users.GET("/bb/users", trainerOnly, ctrl.Users.GetMyStudents)
		users.GET("/progress", ctrl.Users.GetProgress)
		users.GET("/progress/:id", ctrl.Users.GetProgress)
		users.POST("/complete-module", ctrl.Users.CompleteModule)
		users.POST("/uncomplete-module", ctrl.Users.UncompleteModule)
		users.GET("/:id", ctrl.Users.GetUserByID)
		users.POST("", trainerOnly, ctrl.Users.CreateUser)
		users.PUT("/:id", ctrl.Users.UpdateUser)
		users.DELETE("/:id", trainerOnly, ctrl.Users.DeleteUser)
	}

	// --- Module routes ---
	modules := api.Group("/modules")
	{
		modules.GET("", ctrl.Modules.GetAllModules)
		modules.GET("/with-progress", requireAuth, ctrl.Modules.GetModulesWithProgress)
		modules.GET("/:id", ctrl.Modules.GetModuleByID)

		modulesTrainer := modules.Group("", requireAuth, trainerOnly)
		{
			modulesTrainer.POST("", ctrl.Modules.CreateModule)
			modulesTrainer.PUT("/:id", ctrl.Modules.UpdateModule)
			modulesTrainer.DELETE("/:id", ctrl.Modules.DeleteModule)
		}
	}

	// --- Competency routes ---
	competencies := api.Group("/competencies")
	{
		competencies.GET("", ctrl.Competencies.GetAllCompetencies)
		competencies.GET("/area/:area", requireAuth, ctrl.Competencies.GetCompetenciesByArea)
		competencies.GET("/overview", requireAuth, trainerOnly, ctrl.Competencies.GetOverview)
		competencies.GET("/overview/export", requireAuth, trainerOnly, ctrl.Competencies.ExportOverview)
		competencies.GET("/:id", ctrl.Competencies.GetCompetencyByID)

		competenciesTrainer := competencies.Group("", requireAuth, trainerOnly)
		{
			competenciesTrainer.POST("", ctrl.Competencies.CreateCompetency)
			competenciesTrainer.PUT("/:id", ctrl.Competencies.UpdateCompetency)
			competenciesTrainer.DELETE("/:id", ctrl.Competencies.DeleteCompetency)
		}
	}
}

// SetupSPA serves the frontend build from dir. Unknown non-API paths fall
// back to index.html; unknown API paths get the JSON 404.
func SetupSPA(router *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") || c.Request.Method != http.MethodGet {
			middleware.NotFound(c)
			return
		}

		file := filepath.Join(dir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	})
}
