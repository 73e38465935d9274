// Package seed loads the demo accounts and reference data
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	appModels "github.com/bildungsfortschritt/api/internal/app/models"
	appRepos "github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
)

// DemoPassword is the password of every demo account
const DemoPassword = "Password123"

type demoUser struct {
	email     string
	firstName string
	lastName  string
	isBB      bool
	lehrjahr  int
}

var demoUsers = []demoUser{
	{email: "bb@example.com", firstName: "Max", lastName: "Muster", isBB: true},
	{email: "lernender@example.com", firstName: "Anna", lastName: "Schmidt", lehrjahr: 2},
	{email: "student1@example.com", firstName: "Lisa", lastName: "Weber", lehrjahr: 1},
	{email: "student2@example.com", firstName: "Tom", lastName: "Müller", lehrjahr: 3},
}

var demoCompetencies = []appModels.Competency{
	{
		Code:        "A1.1",
		Title:       "Projektziele und Parameter abklären",
		Description: "Sie klären Projektziele und übergeordnete Parameter wie Kosten, Zeit, Qualität, Umfang, Verantwortlichkeiten und Methodik eines ICT-Projektes ab.",
		Area:        "a",
		Taxonomy:    appModels.TaxonomyK3,
	},
	{
		Code:        "B1.1",
		Title:       "Computer mit Betriebssystem aufsetzen",
		Description: "Sie setzen einen Computer mit einem Betriebssystem auf.",
		Area:        "b",
		Taxonomy:    appModels.TaxonomyK3,
	},
	{
		Code:        "C1.1",
		Title:       "Daten sichten und einordnen",
		Description: "Sie sichten Daten aus verschiedenen strukturierten und unstrukturierten Datenquellen und ordnen sie hinsichtlich des 4V-Modells ein.",
		Area:        "c",
		Taxonomy:    appModels.TaxonomyK4,
	},
	{
		Code:        "G1.1",
		Title:       "Anforderungen festhalten",
		Description: "Sie halten Kundenbedürfnisse in Form von fachlichen und technischen Anforderungen nachvollziehbar und lösungsneutral fest.",
		Area:        "g",
		Taxonomy:    appModels.TaxonomyK3,
	},
}

type demoModule struct {
	module      appModels.Module
	competences []string // competency codes
}

func weeks(n int) *int { return &n }

var demoModules = []demoModule{
	{
		module: appModels.Module{
			Code:        "M106",
			Title:       "Datenbanken abfragen, bearbeiten und warten",
			Type:        appModels.ModuleTypeSchool,
			Description: "Grundlagen der Datenbankabfrage und -verwaltung mit SQL",
			Duration:    weeks(4),
		},
		competences: []string{"C1.1"},
	},
	{
		module: appModels.Module{
			Code:        "M114",
			Title:       "Codierungs-, Kompressions- und Verschlüsselungsverfahren einsetzen",
			Type:        appModels.ModuleTypeSchool,
			Description: "Implementierung verschiedener Codierungs- und Verschlüsselungsverfahren",
			Duration:    weeks(3),
		},
	},
	{
		module: appModels.Module{
			Code:        "M319",
			Title:       "Applikationen entwerfen und implementieren",
			Type:        appModels.ModuleTypeSchool,
			Description: "Entwicklung von Software-Applikationen von der Konzeption bis zur Implementierung",
			Duration:    weeks(6),
		},
		competences: []string{"A1.1", "G1.1"},
	},
}

// CreateDemoData inserts the demo catalog and accounts. Records that already
// exist (matched by code or email) are left untouched, so running it twice
// is harmless. Individual failures are collected and returned together.
func CreateDemoData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating demo data...")
	var finalErr error

	competencyIDs, err := seedCompetencies(ctx, repos.Competencies, lgr)
	finalErr = errors.Join(finalErr, err)

	finalErr = errors.Join(finalErr, seedModules(ctx, repos.Modules, competencyIDs, lgr))
	finalErr = errors.Join(finalErr, seedUsers(ctx, repos.Users, lgr))

	if finalErr == nil {
		lgr.Info().Str("password", DemoPassword).Msg("Demo data ready (bb@example.com, lernender@example.com, student1@example.com, student2@example.com)")
	}
	return finalErr
}

func seedCompetencies(ctx context.Context, repo appRepos.ICompetencyRepository, lgr zerolog.Logger) (map[string]int64, error) {
	existing, err := repo.List(ctx, appRepos.CompetencyFilter{})
	if err != nil {
		return nil, fmt.Errorf("error listing competencies: %w", err)
	}
	ids := make(map[string]int64, len(existing))
	for _, c := range existing {
		ids[c.Code] = c.ID
	}

	var finalErr error
	for _, demo := range demoCompetencies {
		if _, ok := ids[demo.Code]; ok {
			continue
		}
		c := demo
		if err := repo.Create(ctx, &c); err != nil && !errors.Is(err, apperrors.ErrCompetencyCodeExists) {
			lgr.Error().Err(err).Str("code", c.Code).Msg("Error creating competency")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		ids[c.Code] = c.ID
	}
	return ids, finalErr
}

func seedModules(ctx context.Context, repo appRepos.IModuleRepository, competencyIDs map[string]int64, lgr zerolog.Logger) error {
	existing, err := repo.List(ctx, appRepos.ModuleFilter{})
	if err != nil {
		return fmt.Errorf("error listing modules: %w", err)
	}
	codes := make(map[string]bool, len(existing))
	for _, m := range existing {
		codes[m.Code] = true
	}

	var finalErr error
	for _, demo := range demoModules {
		if codes[demo.module.Code] {
			continue
		}
		m := demo.module
		m.PrerequisiteIDs = []int64{}
		m.CompetencyIDs = []int64{}
		for _, code := range demo.competences {
			if id, ok := competencyIDs[code]; ok && id > 0 {
				m.CompetencyIDs = append(m.CompetencyIDs, id)
			}
		}
		if err := repo.Create(ctx, &m); err != nil && !errors.Is(err, apperrors.ErrModuleCodeExists) {
			lgr.Error().Err(err).Str("code", m.Code).Msg("Error creating module")
			finalErr = errors.Join(finalErr, err)
		}
	}
	return finalErr
}

func seedUsers(ctx context.Context, repo appRepos.IUserRepository, lgr zerolog.Logger) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("error hashing demo password: %w", err)
	}

	var finalErr error
	var trainerID int64
	for _, demo := range demoUsers {
		user, err := repo.GetByEmail(ctx, demo.email)
		switch {
		case err == nil:
			// already there
		case errors.Is(err, apperrors.ErrResourceNotFound):
			user = &appModels.User{
				Email:            demo.email,
				Password:         hash,
				IsBB:             demo.isBB,
				FirstName:        demo.firstName,
				LastName:         demo.lastName,
				BerufsbildnerIDs: []int64{},
			}
			if demo.lehrjahr > 0 {
				lj := demo.lehrjahr
				user.Lehrjahr = &lj
			}
			if !demo.isBB && trainerID > 0 {
				user.BerufsbildnerIDs = []int64{trainerID}
			}
			if err := repo.Create(ctx, user); err != nil {
				lgr.Error().Err(err).Str("email", demo.email).Msg("Error creating demo user")
				finalErr = errors.Join(finalErr, err)
				continue
			}
		default:
			lgr.Error().Err(err).Str("email", demo.email).Msg("Error looking up demo user")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		if demo.isBB {
			trainerID = user.ID
		}
	}
	return finalErr
}
