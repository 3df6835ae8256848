package transport

import (
	"context"

	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// Gateway abstracts HTTP communication with the ward API.
type Gateway interface {
	// Read methods
	Get(ctx context.Context, path string) (*models.Envelope, error)

	// Mutation methods
	Post(ctx context.Context, path string, payload interface{}) (*models.Envelope, error)
	Put(ctx context.Context, path string, payload interface{}) (*models.Envelope, error)
	Patch(ctx context.Context, path string, payload interface{}) (*models.Envelope, error)
	Delete(ctx context.Context, path string) (*models.Envelope, error)

	// Authentication
	SetToken(token string)
	GetToken() string

	// Lifecycle
	Close() error
}

// NewGateway creates a gateway backed by the HTTP client.
func NewGateway(cfg *config.APIConfig, logger *events.Logger) Gateway {
	return NewHTTPGateway(cfg, logger)
}
