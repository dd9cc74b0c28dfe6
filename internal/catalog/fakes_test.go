package catalog

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/timmy/catalogsync/internal/domain"
)

// memStore is an in-memory Store.
type memStore struct {
	mu           sync.Mutex
	nextID       uint
	products     map[string]*domain.CatalogProduct
	meta         map[uint]map[string]string
	taxonomies   map[string]bool
	terms        []*domain.Term
	productTerms map[uint]map[uint]bool
	attrs        map[uint][]domain.ProductAttribute
	createdTerms int
}

func newMemStore(taxonomies ...string) *memStore {
	s := &memStore{
		products:     make(map[string]*domain.CatalogProduct),
		meta:         make(map[uint]map[string]string),
		taxonomies:   make(map[string]bool),
		productTerms: make(map[uint]map[uint]bool),
		attrs:        make(map[uint][]domain.ProductAttribute),
	}
	for _, tax := range taxonomies {
		s.taxonomies[tax] = true
	}
	return s
}

// newSeededStore registers every taxonomy the transformer writes to plus
// the shipping class and category terms.
func newSeededStore() *memStore {
	s := newMemStore(domain.TaxonomyCategory, domain.TaxonomyBrand, domain.TaxonomyShippingClass, domain.AttributeTaxonomy("brand"))
	for _, key := range AttributeKeys() {
		s.taxonomies[domain.AttributeTaxonomy(key)] = true
	}
	s.addTerm(domain.TaxonomyShippingClass, "Juta", "juta")
	for _, slug := range CategorySlugs() {
		s.addTerm(domain.TaxonomyCategory, HumanizeSlug(slug), slug)
	}
	return s
}

func (s *memStore) addTerm(taxonomy, name, slug string) *domain.Term {
	s.nextID++
	term := &domain.Term{ID: s.nextID, Taxonomy: taxonomy, Name: name, Slug: slug}
	s.terms = append(s.terms, term)
	return term
}

func (s *memStore) TaxonomyExists(ctx context.Context, taxonomy string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taxonomies[taxonomy], nil
}

func (s *memStore) FindTermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.terms {
		if t.Taxonomy == taxonomy && t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindTermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.terms {
		if t.Taxonomy == taxonomy && t.Slug == slug {
			return t, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateTerm(ctx context.Context, term *domain.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	term.ID = s.nextID
	s.terms = append(s.terms, term)
	s.createdTerms++
	return nil
}

func (s *memStore) FindBySKU(ctx context.Context, sku string) (*domain.CatalogProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[sku]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) SaveProduct(ctx context.Context, product *domain.CatalogProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == 0 {
		if _, dup := s.products[product.SKU]; dup {
			return errors.New("duplicate sku")
		}
		s.nextID++
		product.ID = s.nextID
	}
	cp := *product
	s.products[product.SKU] = &cp
	return nil
}

func (s *memStore) SetMeta(ctx context.Context, productID uint, entries []domain.ProductMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[productID]
	if !ok {
		m = make(map[string]string)
		s.meta[productID] = m
	}
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return nil
}

func (s *memStore) AssignTerm(ctx context.Context, productID uint, term *domain.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.productTerms[productID]
	if !ok {
		m = make(map[uint]bool)
		s.productTerms[productID] = m
	}
	m[term.ID] = true
	return nil
}

func (s *memStore) SetAttributes(ctx context.Context, productID uint, attrs []domain.ProductAttribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[productID] = append([]domain.ProductAttribute(nil), attrs...)
	return nil
}

func (s *memStore) termNames(productID uint, taxonomy string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, t := range s.terms {
		if t.Taxonomy == taxonomy && s.productTerms[productID][t.ID] {
			names = append(names, t.Name)
		}
	}
	return names
}

// memAssets is an in-memory AssetRepository.
type memAssets struct {
	mu     sync.Mutex
	nextID uint
	byExt  map[string]*domain.ImageAsset
}

func newMemAssets() *memAssets {
	return &memAssets{byExt: make(map[string]*domain.ImageAsset)}
}

func (a *memAssets) FindByExternalID(ctx context.Context, externalID string) (*domain.ImageAsset, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byExt[externalID], nil
}

func (a *memAssets) Create(ctx context.Context, asset *domain.ImageAsset) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	asset.ID = a.nextID
	a.byExt[asset.ExternalID] = asset
	return nil
}

func (a *memAssets) Delete(ctx context.Context, id uint) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range a.byExt {
		if v.ID == id {
			delete(a.byExt, k)
		}
	}
	return nil
}

// stubDownloader serves a fixed payload and counts calls.
type stubDownloader struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (d *stubDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.data, d.err
}

func (d *stubDownloader) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}
