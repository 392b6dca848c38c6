package ports

import (
	"context"
	"field-route-service/internal/domain"
)

// Port: read access to externally owned customer records.
type CustomerRepository interface {
	// Return the customers with the given ids in the order requested.
	// Unknown ids are omitted rather than reported as errors.
	GetCustomers(ctx context.Context, ids []string) ([]domain.Customer, error)
	// Return all customers ordered by id.
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
}
