package catalog

import (
	"context"
	"errors"

	"github.com/timmy/catalogsync/internal/domain"
)

var (
	// ErrTaxonomyMissing is returned when a term is requested in a taxonomy
	// that has not been registered.
	ErrTaxonomyMissing = errors.New("taxonomy does not exist")
	// ErrMissingSKU is returned for feed records without an identity.
	ErrMissingSKU = errors.New("product record has no id")
)

// TermStore is the taxonomy half of the catalog store.
type TermStore interface {
	TaxonomyExists(ctx context.Context, taxonomy string) (bool, error)
	// FindTermByName and FindTermBySlug return nil, nil when nothing matches.
	FindTermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error)
	FindTermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error)
	CreateTerm(ctx context.Context, term *domain.Term) error
}

// Store is the catalog store the transformer issues mutations against.
type Store interface {
	TermStore

	// FindBySKU returns nil, nil when no product has the SKU.
	FindBySKU(ctx context.Context, sku string) (*domain.CatalogProduct, error)
	// SaveProduct creates the product when its ID is zero, otherwise updates it.
	SaveProduct(ctx context.Context, product *domain.CatalogProduct) error
	// SetMeta upserts the entries by key for the product.
	SetMeta(ctx context.Context, productID uint, entries []domain.ProductMeta) error
	// AssignTerm links a term to a product; linking twice is a no-op.
	AssignTerm(ctx context.Context, productID uint, term *domain.Term) error
	// SetAttributes replaces the product's attribute set.
	SetAttributes(ctx context.Context, productID uint, attrs []domain.ProductAttribute) error
}
