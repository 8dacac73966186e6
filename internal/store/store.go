package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sahanas/mailsense/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetDefaultUser(ctx context.Context) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	// UpsertAnalysis persists one analysis record, replacing any previous
	// row and extracted entities for the same message ID.
	UpsertAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, id string, userID uuid.UUID) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*models.Analysis, int, error)
	Analytics(ctx context.Context, userID uuid.UUID, recentLimit int) (*models.AnalyticsSummary, error)
}

// AnalysisFilter narrows ListAnalyses. Zero values mean "no constraint".
type AnalysisFilter struct {
	UserID   uuid.UUID
	Priority string
	Category string
	Page     int
	Limit    int
}
