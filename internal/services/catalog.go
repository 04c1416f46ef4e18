// Package services – CatalogService
//
// This file implements read-only catalog queries: assignment listings,
// session recordings, and the curated resource list. Catalog sheets are
// plain header-keyed record lists; the service adds no interpretation beyond
// handing the rows to the presentation layer.
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
)

// CatalogRepo defines the repository contract required by CatalogService.
type CatalogRepo interface {
	Assignments(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error)
	Recordings(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error)
	Resources(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error)
}

// CatalogSheets names the worksheets backing the catalog queries.
type CatalogSheets struct {
	Assignments string
	Recordings  string
	Resources   string
}

// CatalogService serves the course content listings.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the catalog repository used by this service.
	Repo CatalogRepo
	// Sheets names the catalog worksheets.
	Sheets CatalogSheets
}

// Assignments returns the assignment rows in sheet order.
func (s *CatalogService) Assignments(ctx context.Context) ([]map[string]string, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Assignments")
	defer span.End()
	return s.Repo.Assignments(ctx, s.DB, s.Sheets.Assignments)
}

// Recordings returns the session-recording rows in sheet order.
func (s *CatalogService) Recordings(ctx context.Context) ([]map[string]string, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Recordings")
	defer span.End()
	return s.Repo.Recordings(ctx, s.DB, s.Sheets.Recordings)
}

// Resources returns the resource rows in sheet order.
func (s *CatalogService) Resources(ctx context.Context) ([]map[string]string, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Resources")
	defer span.End()
	return s.Repo.Resources(ctx, s.DB, s.Sheets.Resources)
}
