// Package estimator ties the catalog, the cost engine, the importer, text generation
// and persistence together into the operations the HTTP layer exposes.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/generate"
	"github.com/Simplici0/costestimator/internal/importer"
	"github.com/Simplici0/costestimator/internal/pricing"
	"github.com/Simplici0/costestimator/internal/store"
)

var (
	// ErrGeneration wraps failures of the text generator.
	ErrGeneration = errors.New("estimate generation failed")
	// ErrEmptyDescription is returned when there is nothing to estimate.
	ErrEmptyDescription = errors.New("project description is required")
	// ErrNoGenerator is returned by EstimateFromDescription when no generator is configured.
	ErrNoGenerator = errors.New("text generation is not configured")
)

// Service runs estimates against one catalog.
type Service struct {
	catalog   *catalog.Catalog
	store     store.ProjectStore
	generator generate.Generator
	manual    *importer.Importer
	generated *importer.Importer
}

// New builds a Service. store and generator may be nil: nothing is then persisted,
// and EstimateFromDescription returns ErrNoGenerator.
func New(c *catalog.Catalog, s store.ProjectStore, g generate.Generator) *Service {
	return &Service{
		catalog:   c,
		store:     s,
		generator: g,
		manual:    importer.New(c, importer.Options{Strict: false}),
		generated: importer.New(c, importer.Options{Strict: true}),
	}
}

// Catalog returns the catalog estimates are priced with.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	Breakdown pricing.Breakdown
	// Project is the saved record, nil when nothing was saved.
	Project *store.SavedProject
	// SaveErr is set when saving failed. The breakdown is still valid.
	SaveErr error
}

// Submit prices details and, for a known owner, saves the project.
func (s *Service) Submit(ctx context.Context, owner string, details pricing.ProjectDetails) SubmitResult {
	result := SubmitResult{Breakdown: pricing.Calculate(details, s.catalog)}

	if owner == "" || s.store == nil {
		return result
	}

	saved, err := s.store.InsertProject(ctx, store.NewProject{
		Owner:     owner,
		Details:   details,
		TotalCost: result.Breakdown.Total,
	})
	if err != nil {
		log.Error().Err(err).Str("owner", owner).Str("project", details.ProjectName).Msg("save project")
		result.SaveErr = err
		return result
	}
	result.Project = &saved
	return result
}

// ImportForm validates a candidate coming from the manual form. Unknown catalog ids are warnings.
func (s *Service) ImportForm(candidate map[string]any) (importer.Result, error) {
	return s.manual.Import(candidate)
}

// Estimate is a generated project together with its costs.
type Estimate struct {
	Result    importer.Result
	Breakdown pricing.Breakdown
	RawText   string
}

// EstimateFromDescription asks the generator for a project matching description.
// The returned error wraps ErrGeneration, importer.ErrParse or importer.ErrValidation.
func (s *Service) EstimateFromDescription(ctx context.Context, description string) (Estimate, error) {
	if strings.TrimSpace(description) == "" {
		return Estimate{}, ErrEmptyDescription
	}
	if s.generator == nil {
		return Estimate{}, ErrNoGenerator
	}

	prompt := generate.BuildPrompt(s.catalog, description)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	result, err := s.generated.ImportText(text)
	if err != nil {
		log.Warn().Err(err).Int("text_len", len(text)).Msg("generated estimate rejected")
		if errors.Is(err, importer.ErrParse) {
			s.forget(ctx, prompt)
		}
		return Estimate{RawText: text}, err
	}

	return Estimate{
		Result:    result,
		Breakdown: pricing.Calculate(result.Details, s.catalog),
		RawText:   text,
	}, nil
}

// forget makes the next request for prompt reach the model again, so a retry after a
// parse failure is not answered with the same unreadable text.
func (s *Service) forget(ctx context.Context, prompt string) {
	inv, ok := s.generator.(generate.Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, prompt); err != nil {
		log.Warn().Err(err).Msg("drop cached generation")
	}
}

// History lists the owner's saved projects, newest first.
func (s *Service) History(ctx context.Context, owner string) ([]store.SavedProject, error) {
	if s.store == nil {
		return []store.SavedProject{}, nil
	}
	projects, err := s.store.ListProjects(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Reopen loads a saved project and prices it against the current catalog.
// Items whose catalog id has since been retired show up in Breakdown.Unresolved.
func (s *Service) Reopen(ctx context.Context, owner, id string) (store.SavedProject, pricing.Breakdown, error) {
	if s.store == nil {
		return store.SavedProject{}, pricing.Breakdown{}, store.ErrNotFound
	}
	project, err := s.store.GetProject(ctx, owner, id)
	if err != nil {
		return store.SavedProject{}, pricing.Breakdown{}, err
	}
	return project, pricing.Calculate(project.Details(), s.catalog), nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}
