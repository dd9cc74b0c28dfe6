package service

import (
	"context"
	"fmt"

	"github.com/timmy/catalogsync/internal/catalog"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
)

// TaxonomyRegistrar can register taxonomies and manage their terms.
type TaxonomyRegistrar interface {
	catalog.TermStore
	RegisterTaxonomy(ctx context.Context, name string) error
}

// SeedStats counts what SeedCatalog created.
type SeedStats struct {
	Taxonomies int
	Terms      int
}

// SeedCatalog registers every taxonomy the transformer writes into and
// creates the mapped category terms and the shipping class term. Running it
// again creates nothing new.
func SeedCatalog(ctx context.Context, store TaxonomyRegistrar, shippingClass string) (*SeedStats, error) {
	log := logger.FromContext(ctx)
	stats := &SeedStats{}

	taxonomies := []string{
		domain.TaxonomyCategory,
		domain.TaxonomyBrand,
		domain.TaxonomyShippingClass,
		domain.AttributeTaxonomy("brand"),
	}
	for _, key := range catalog.AttributeKeys() {
		taxonomies = append(taxonomies, domain.AttributeTaxonomy(key))
	}
	for _, name := range taxonomies {
		ok, err := store.TaxonomyExists(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if err := store.RegisterTaxonomy(ctx, name); err != nil {
			return nil, fmt.Errorf("failed to register taxonomy %s: %w", name, err)
		}
		stats.Taxonomies++
	}

	ensure := func(taxonomy, slug string) error {
		existing, err := store.FindTermBySlug(ctx, taxonomy, slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		term := &domain.Term{Taxonomy: taxonomy, Name: catalog.HumanizeSlug(slug), Slug: slug}
		if err := store.CreateTerm(ctx, term); err != nil {
			return fmt.Errorf("failed to create term %s/%s: %w", taxonomy, slug, err)
		}
		stats.Terms++
		return nil
	}

	for _, slug := range catalog.CategorySlugs() {
		if err := ensure(domain.TaxonomyCategory, slug); err != nil {
			return nil, err
		}
	}
	if shippingClass != "" {
		if err := ensure(domain.TaxonomyShippingClass, shippingClass); err != nil {
			return nil, err
		}
	}

	log.WithFields(logger.Fields{
		"taxonomies": stats.Taxonomies,
		"terms":      stats.Terms,
	}).Info("Catalog seeded")
	return stats, nil
}
