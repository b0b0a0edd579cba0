package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/database"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

func (s *SystemService) CheckVersion() string {
	return version.Version
}
