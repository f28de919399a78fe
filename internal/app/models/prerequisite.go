package models

import (
	"time"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// Prerequisite is a catalog row in the database.
type Prerequisite struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Code        string    `db:"code"`
	Credits     float64   `db:"credits"`
	Description string    `db:"description"`
	Position    int       `db:"position"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Requirement converts the row to the domain type.
func (p Prerequisite) Requirement() transcript.PrerequisiteRequirement {
	return transcript.PrerequisiteRequirement{
		ID:          p.ID,
		Name:        p.Name,
		Code:        p.Code,
		Credits:     p.Credits,
		Description: p.Description,
	}
}
