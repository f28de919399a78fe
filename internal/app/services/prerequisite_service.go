package services

import (
	"context"
	"fmt"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/app/models/dto"
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
)

// PrerequisiteLister reads the stored catalog.
type PrerequisiteLister interface {
	List(ctx context.Context) ([]models.Prerequisite, error)
}

// LoadCatalog builds the in-memory catalog from storage. The catalog is fixed for
// the lifetime of the process.
func LoadCatalog(ctx context.Context, repo PrerequisiteLister) (*prereq.Catalog, error) {
	rows, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading prerequisites: %w", err)
	}
	reqs := make([]transcript.PrerequisiteRequirement, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, r.Requirement())
	}
	return prereq.NewCatalog(reqs)
}

// PrerequisiteService exposes the requirement catalog
type PrerequisiteService struct {
	catalog *prereq.Catalog
}

// NewPrerequisiteService creates a new PrerequisiteService
func NewPrerequisiteService(catalog *prereq.Catalog) *PrerequisiteService {
	return &PrerequisiteService{catalog: catalog}
}

// List returns the catalog in display order.
func (s *PrerequisiteService) List() *dto.PrerequisiteListResponse {
	return &dto.PrerequisiteListResponse{Prerequisites: s.catalog.All()}
}
