package clientRepo

import (
	"context"

	"stylo/models"
)

// ClientRepository defines methods for end-client data access.
type ClientRepository interface {
	// FindByDocument retrieves a client by identity document, or nil when unknown.
	FindByDocument(ctx context.Context, documentType, documentNumber string) (*models.Client, error)
	// GetByID retrieves a client by ID, or nil when unknown.
	GetByID(ctx context.Context, id string) (*models.Client, error)
	// Create inserts a new client record.
	Create(ctx context.Context, client *models.Client) error
	// Update modifies an existing client record.
	Update(ctx context.Context, client *models.Client) error
}
