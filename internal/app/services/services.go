// Package services holds the business logic between controllers and repositories.
//
// Services defined in this package:
//   - AuthService: registration, login and token refresh
//   - UserService: user administration, progress and module completion
//   - ModuleService: training modules and per user module progress
//   - CompetencyService: competency catalog, coverage overview and export
package services

import (
	"github.com/rs/zerolog"

	appAuth "github.com/bildungsfortschritt/api/internal/app/auth"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
)

// Services groups every service the controllers need
type Services struct {
	Auth         AuthService
	Users        UserService
	Modules      ModuleService
	Competencies CompetencyService
}

// NewServices wires all services over one set of repositories
func NewServices(repos *repositories.Repositories, jwtService *auth.JWTService, logger zerolog.Logger) *Services {
	authz := appAuth.NewAuthorizationService(repos.Users)
	return &Services{
		Auth:         NewAuthService(repos.Users, jwtService, logger),
		Users:        NewUserService(repos, authz, logger),
		Modules:      NewModuleService(repos, logger),
		Competencies: NewCompetencyService(repos, logger),
	}
}
