package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	PrerequisiteRepository *PrerequisiteRepository
	SessionRepository      *SessionRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		PrerequisiteRepository: NewPrerequisiteRepository(db),
		SessionRepository:      NewSessionRepository(db),
	}
}
