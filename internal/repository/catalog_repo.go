package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository is the gorm-backed catalog store: products, their meta,
// taxonomies, terms and attribute assignments.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new CatalogRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *CatalogRepository: repository instance bound to db.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindBySKU retrieves a product by SKU.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sku: product SKU.
//
// Returns:
//   - *domain.CatalogProduct: product, or nil if no product has the SKU.
//   - error: non-nil if lookup fails.
func (r *CatalogRepository) FindBySKU(ctx context.Context, sku string) (*domain.CatalogProduct, error) {
	var product domain.CatalogProduct
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SaveProduct creates the product when it has no ID yet, otherwise updates every column.
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *domain.CatalogProduct) error {
	if product.ID == 0 {
		return r.db.WithContext(ctx).Create(product).Error
	}
	return r.db.WithContext(ctx).Save(product).Error
}

// SetMeta upserts meta entries keyed by (product, key).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - productID: owning product.
//   - entries: key/value pairs; ProductID is overwritten with productID.
//
// Returns:
//   - error: non-nil if the upsert fails.
func (r *CatalogRepository) SetMeta(ctx context.Context, productID uint, entries []domain.ProductMeta) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]domain.ProductMeta, len(entries))
	for i, e := range entries {
		rows[i] = domain.ProductMeta{ProductID: productID, Key: e.Key, Value: e.Value}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}

// GetMeta returns the product's meta as a key/value map.
func (r *CatalogRepository) GetMeta(ctx context.Context, productID uint) (map[string]string, error) {
	var rows []domain.ProductMeta
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&rows).Error; err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(rows))
	for _, row := range rows {
		meta[row.Key] = row.Value
	}
	return meta, nil
}

// RegisterTaxonomy makes a taxonomy available for term creation. Registering
// an existing taxonomy is a no-op.
func (r *CatalogRepository) RegisterTaxonomy(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Taxonomy{Name: name}).Error
}

// TaxonomyExists reports whether the taxonomy has been registered.
func (r *CatalogRepository) TaxonomyExists(ctx context.Context, taxonomy string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Taxonomy{}).Where("name = ?", taxonomy).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindTermByName returns the term with the exact name, or nil.
func (r *CatalogRepository) FindTermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error) {
	return r.findTerm(ctx, "taxonomy = ? AND name = ?", taxonomy, name)
}

// FindTermBySlug returns the term with the slug, or nil.
func (r *CatalogRepository) FindTermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error) {
	return r.findTerm(ctx, "taxonomy = ? AND slug = ?", taxonomy, slug)
}

func (r *CatalogRepository) findTerm(ctx context.Context, query string, args ...interface{}) (*domain.Term, error) {
	var term domain.Term
	err := r.db.WithContext(ctx).Where(query, args...).First(&term).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &term, nil
}

// CreateTerm inserts a term. The taxonomy must be registered.
func (r *CatalogRepository) CreateTerm(ctx context.Context, term *domain.Term) error {
	ok, err := r.TaxonomyExists(ctx, term.Taxonomy)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("taxonomy %q is not registered", term.Taxonomy)
	}
	return r.db.WithContext(ctx).Create(term).Error
}

// AssignTerm links a term to a product. Linking twice is a no-op.
func (r *CatalogRepository) AssignTerm(ctx context.Context, productID uint, term *domain.Term) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.ProductTerm{
		ProductID: productID,
		TermID:    term.ID,
		Taxonomy:  term.Taxonomy,
	}).Error
}

// ProductTerms returns the terms linked to a product, optionally filtered by taxonomy.
func (r *CatalogRepository) ProductTerms(ctx context.Context, productID uint, taxonomy string) ([]domain.Term, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN product_terms ON product_terms.term_id = terms.id").
		Where("product_terms.product_id = ?", productID)
	if taxonomy != "" {
		query = query.Where("terms.taxonomy = ?", taxonomy)
	}
	var terms []domain.Term
	if err := query.Order("terms.id").Find(&terms).Error; err != nil {
		return nil, err
	}
	return terms, nil
}

// SetAttributes replaces the product's attribute set in one transaction.
func (r *CatalogRepository) SetAttributes(ctx context.Context, productID uint, attrs []domain.ProductAttribute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&domain.ProductAttribute{}).Error; err != nil {
			return err
		}
		if len(attrs) == 0 {
			return nil
		}
		rows := make([]domain.ProductAttribute, len(attrs))
		for i, a := range attrs {
			a.ProductID = productID
			rows[i] = a
		}
		return tx.Create(&rows).Error
	})
}

// Attributes returns the product's attributes ordered by position.
func (r *CatalogRepository) Attributes(ctx context.Context, productID uint) ([]domain.ProductAttribute, error) {
	var attrs []domain.ProductAttribute
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("position").Find(&attrs).Error; err != nil {
		return nil, err
	}
	return attrs, nil
}

// CountProducts returns the number of catalog products.
func (r *CatalogRepository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CatalogProduct{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListProducts returns a page of products ordered by ID.
func (r *CatalogRepository) ListProducts(ctx context.Context, limit, offset int) ([]domain.CatalogProduct, error) {
	var products []domain.CatalogProduct
	if err := r.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
