//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package eventarchive

import (
	"context"
)

// Repository provides event archive related operations.
type Repository interface {
	Run(ctx context.Context) error
}

// Service copies appended events from the archive topic into the analytics store.
type Service struct {
	repo Repository
}

// New creates a new event archive service.
func New(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Run archives events until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.repo.Run(ctx)
}
