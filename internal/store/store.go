// Package store persists estimated projects per owner.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/costestimator/internal/pricing"
)

// ErrNotFound is returned when a project does not exist or belongs to another owner.
var ErrNotFound = errors.New("project not found")

// Dimensions of the project volume, in meters.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewProject is what callers hand to InsertProject.
type NewProject struct {
	Owner     string
	Details   pricing.ProjectDetails
	TotalCost float64
}

// SavedProject is a stored estimate as read back from a ProjectStore.
type SavedProject struct {
	ID         string                 `json:"id"`
	Owner      string                 `json:"owner"`
	Name       string                 `json:"name"`
	Dimensions Dimensions             `json:"dimensions"`
	Materials  []pricing.MaterialItem `json:"materials"`
	Labor      []pricing.LaborItem    `json:"labor"`
	TotalCost  float64                `json:"totalCost"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// Details converts p back into the form the cost engine accepts.
func (p SavedProject) Details() pricing.ProjectDetails {
	return pricing.ProjectDetails{
		ProjectName: p.Name,
		Length:      p.Dimensions.Length,
		Width:       p.Dimensions.Width,
		Height:      p.Dimensions.Height,
		Materials:   append([]pricing.MaterialItem(nil), p.Materials...),
		Labor:       append([]pricing.LaborItem(nil), p.Labor...),
	}
}

// ProjectStore is the persistence collaborator of the estimator.
type ProjectStore interface {
	InsertProject(ctx context.Context, p NewProject) (SavedProject, error)
	// ListProjects returns the owner's projects, newest first.
	ListProjects(ctx context.Context, owner string) ([]SavedProject, error)
	GetProject(ctx context.Context, owner, id string) (SavedProject, error)
	Ping(ctx context.Context) error
	Close() error
}

func validateNew(p NewProject) error {
	if strings.TrimSpace(p.Owner) == "" {
		return errors.New("owner is required")
	}
	if strings.TrimSpace(p.Details.ProjectName) == "" {
		return errors.New("project name is required")
	}
	return nil
}

func encodeItems(p NewProject) ([]byte, []byte, error) {
	materials := p.Details.Materials
	if materials == nil {
		materials = []pricing.MaterialItem{}
	}
	labor := p.Details.Labor
	if labor == nil {
		labor = []pricing.LaborItem{}
	}

	materialsJSON, err := json.Marshal(materials)
	if err != nil {
		return nil, nil, fmt.Errorf("encode materials: %w", err)
	}
	laborJSON, err := json.Marshal(labor)
	if err != nil {
		return nil, nil, fmt.Errorf("encode labor: %w", err)
	}
	return materialsJSON, laborJSON, nil
}

func decodeItems(p *SavedProject, materialsJSON, laborJSON []byte) error {
	if err := json.Unmarshal(materialsJSON, &p.Materials); err != nil {
		return fmt.Errorf("decode materials of project %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(laborJSON, &p.Labor); err != nil {
		return fmt.Errorf("decode labor of project %s: %w", p.ID, err)
	}
	if p.Materials == nil {
		p.Materials = []pricing.MaterialItem{}
	}
	if p.Labor == nil {
		p.Labor = []pricing.LaborItem{}
	}
	return nil
}
