package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/timmy/catalogsync/internal/domain"
)

// TermResolver finds or creates taxonomy terms by name and caches the
// results per taxonomy. Terms are never deleted, so cached entries stay valid.
type TermResolver struct {
	store TermStore

	mu         sync.Mutex
	terms      map[termKey]*domain.Term
	taxonomies map[string]bool
}

type termKey struct {
	taxonomy string
	name     string
}

// NewTermResolver creates a resolver backed by store.
func NewTermResolver(store TermStore) *TermResolver {
	return &TermResolver{
		store:      store,
		terms:      make(map[termKey]*domain.Term),
		taxonomies: make(map[string]bool),
	}
}

// GetOrCreate returns the term called name in taxonomy, creating it when
// absent. It returns ErrTaxonomyMissing if the taxonomy is not registered.
func (r *TermResolver) GetOrCreate(ctx context.Context, taxonomy, name string) (*domain.Term, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty term name for taxonomy %s", taxonomy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := termKey{taxonomy: taxonomy, name: name}
	if term, ok := r.terms[key]; ok {
		return term, nil
	}

	if err := r.ensureTaxonomy(ctx, taxonomy); err != nil {
		return nil, err
	}

	term, err := r.store.FindTermByName(ctx, taxonomy, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up term %q in %s: %w", name, taxonomy, err)
	}
	if term == nil {
		slug, err := r.uniqueSlug(ctx, taxonomy, Slugify(name))
		if err != nil {
			return nil, err
		}
		term = &domain.Term{Taxonomy: taxonomy, Name: name, Slug: slug}
		if err := r.store.CreateTerm(ctx, term); err != nil {
			return nil, fmt.Errorf("failed to create term %q in %s: %w", name, taxonomy, err)
		}
	}

	r.terms[key] = term
	return term, nil
}

// BySlug looks a term up by slug without creating it. It returns nil, nil
// when the term does not exist.
func (r *TermResolver) BySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error) {
	term, err := r.store.FindTermBySlug(ctx, taxonomy, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up term slug %q in %s: %w", slug, taxonomy, err)
	}
	return term, nil
}

// TaxonomyExists reports whether taxonomy is registered.
func (r *TermResolver) TaxonomyExists(ctx context.Context, taxonomy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.ensureTaxonomy(ctx, taxonomy)
	if errors.Is(err, ErrTaxonomyMissing) {
		return false, nil
	}
	return err == nil, err
}

// ensureTaxonomy caches positive answers only; a taxonomy registered later
// is picked up on the next call.
func (r *TermResolver) ensureTaxonomy(ctx context.Context, taxonomy string) error {
	if r.taxonomies[taxonomy] {
		return nil
	}
	ok, err := r.store.TaxonomyExists(ctx, taxonomy)
	if err != nil {
		return fmt.Errorf("failed to check taxonomy %s: %w", taxonomy, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaxonomyMissing, taxonomy)
	}
	r.taxonomies[taxonomy] = true
	return nil
}

func (r *TermResolver) uniqueSlug(ctx context.Context, taxonomy, base string) (string, error) {
	if base == "" {
		base = "term"
	}
	slug := base
	for i := 2; ; i++ {
		existing, err := r.store.FindTermBySlug(ctx, taxonomy, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q in %s: %w", slug, taxonomy, err)
		}
		if existing == nil {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}
