package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
)

// catalogFile is the on-disk layout of the prerequisite catalog.
type catalogFile struct {
	Prerequisites []transcript.PrerequisiteRequirement `yaml:"prerequisites"`
}

// CatalogStore is the persistence the catalog is synced into.
type CatalogStore interface {
	ReplaceAll(ctx context.Context, reqs []transcript.PrerequisiteRequirement) error
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) ([]transcript.PrerequisiteRequirement, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Prerequisites) == 0 {
		return nil, fmt.Errorf("parse catalog: no prerequisites listed")
	}
	for i := range f.Prerequisites {
		req := &f.Prerequisites[i]
		req.Code = transcript.CanonicalCode(req.Code, "", "")
		if req.Credits < 0 {
			return nil, fmt.Errorf("parse catalog: %s has negative credits", req.ID)
		}
	}
	// NewCatalog rejects empty and duplicate ids.
	if _, err := prereq.NewCatalog(f.Prerequisites); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return f.Prerequisites, nil
}

// LoadCatalogFile reads and validates the catalog at path.
func LoadCatalogFile(path string) ([]transcript.PrerequisiteRequirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// SyncCatalog replaces the stored catalog with the one at path. A missing file
// leaves the stored catalog untouched.
func SyncCatalog(ctx context.Context, store CatalogStore, path string, lgr zerolog.Logger) error {
	reqs, err := LoadCatalogFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			lgr.Warn().Str("path", path).Msg("Catalog file not found, keeping stored prerequisites")
			return nil
		}
		return err
	}
	if err := store.ReplaceAll(ctx, reqs); err != nil {
		lgr.Error().Err(err).Msg("Error syncing prerequisite catalog")
		return err
	}
	lgr.Info().Int("count", len(reqs)).Str("path", path).Msg("Prerequisite catalog synced")
	return nil
}
