package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
)

const productStatusPublish = "publish"

// TransformerConfig holds the store conventions the transformer writes with.
type TransformerConfig struct {
	ShippingClass string  // shipping class slug assigned to every product
	MetaPrefix    string  // prefix of vendor metadata keys
	Source        string  // value of the imported-from marker
	TaxRate       float64 // VAT included in feed prices
}

// DefaultTransformerConfig returns the conventions of the juta feed.
func DefaultTransformerConfig() TransformerConfig {
	return TransformerConfig{
		ShippingClass: "juta",
		MetaPrefix:    "juta_",
		Source:        "juta",
		TaxRate:       DefaultTaxRate,
	}
}

// Transformer applies one feed record to the catalog store.
type Transformer struct {
	store  Store
	terms  *TermResolver
	images *ImageIndex
	logger *logger.Logger
	cfg    TransformerConfig
	now    func() time.Time
}

// NewTransformer creates a Transformer. images may be nil, in which case
// products are imported without images.
func NewTransformer(store Store, terms *TermResolver, images *ImageIndex, log *logger.Logger, cfg TransformerConfig) *Transformer {
	if log == nil {
		log = logger.GetDefault()
	}
	if terms == nil {
		terms = NewTermResolver(store)
	}
	return &Transformer{
		store:  store,
		terms:  terms,
		images: images,
		logger: log,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Apply creates or updates the catalog product identified by the record's
// SKU and returns its id. New products get the full treatment; existing
// products only get stock, prices, a missing image and fresh metadata.
// Mapping misses are logged and skipped; only store failures are returned.
func (t *Transformer) Apply(ctx context.Context, rec *domain.ProductRecord) (uint, error) {
	log := t.logger.Inherit(ctx)

	sku := strings.TrimSpace(rec.ID)
	if sku == "" {
		return 0, ErrMissingSKU
	}

	product, err := t.store.FindBySKU(ctx, sku)
	if err != nil {
		return 0, fmt.Errorf("failed to look up product: %w", err)
	}
	isUpdate := product != nil
	if isUpdate {
		log.Infof("Updating existing product ID: %d (SKU: %s)", product.ID, sku)
	} else {
		log.Infof("Creating new product (SKU: %s)", sku)
		product = &domain.CatalogProduct{SKU: sku}
	}

	var brandTerm *domain.Term
	if !isUpdate {
		product.Name = t.title(ctx, rec)
		log.Debugf("Set product name: %s", product.Name)

		if ean := strings.TrimSpace(rec.Barcode); ean != "" {
			product.EAN = ean
			log.Debugf("Set EAN: %s", ean)
		}

		if producer := strings.TrimSpace(rec.Producer); producer != "" {
			brandTerm = t.term(ctx, domain.AttributeTaxonomy("brand"), producer)
			if brandTerm != nil {
				product.Brand = brandTerm.Name
				log.Debugf("Set pa_brand attribute: %s", brandTerm.Name)
			}
		}
	} else {
		log.Debug("Skipping name, EAN, and brand updates for existing product")
	}

	t.applyStock(ctx, product, rec, isUpdate)
	t.applyPrices(ctx, product, rec, isUpdate)
	t.applyShippingClass(ctx, product)

	product.Status = productStatusPublish
	if err := t.store.SaveProduct(ctx, product); err != nil {
		return 0, fmt.Errorf("failed to save product: %w", err)
	}

	if err := t.storeMeta(ctx, product.ID, rec); err != nil {
		return 0, err
	}

	if !isUpdate {
		if brandTerm != nil {
			if err := t.store.AssignTerm(ctx, product.ID, brandTerm); err != nil {
				return 0, fmt.Errorf("failed to assign brand: %w", err)
			}
			log.Debugf("Assigned pa_brand taxonomy: %s", brandTerm.Name)
		}
		if strings.TrimSpace(rec.Producer) != "" {
			t.assignProductBrand(ctx, product.ID, rec.Producer)
		}
		if groupID := strings.TrimSpace(rec.GroupID); groupID != "" {
			t.assignCategory(ctx, product.ID, groupID)
		}
		if jpg := strings.TrimSpace(rec.JPG1); jpg != "" {
			t.setImage(ctx, product, jpg)
		}
		if len(rec.Params) > 0 {
			if err := t.applyAttributes(ctx, product.ID, rec.Params); err != nil {
				return 0, err
			}
		}
		if err := t.store.SaveProduct(ctx, product); err != nil {
			return 0, fmt.Errorf("failed to save product: %w", err)
		}
		log.Debug("Saved product after setting image, category, and attributes")
		return product.ID, nil
	}

	if jpg := strings.TrimSpace(rec.JPG1); jpg != "" {
		if product.ImageID == nil {
			log.Debug("Existing product has no thumbnail, setting image from XML")
			if t.setImage(ctx, product, jpg) {
				if err := t.store.SaveProduct(ctx, product); err != nil {
					return 0, fmt.Errorf("failed to save product: %w", err)
				}
				log.Debug("Saved product after setting missing thumbnail")
			}
		} else {
			log.Debugf("Existing product already has thumbnail (ID: %d), keeping it", *product.ImageID)
		}
	}
	return product.ID, nil
}

func (t *Transformer) title(ctx context.Context, rec *domain.ProductRecord) string {
	log := t.logger.Inherit(ctx)

	note := strings.TrimSpace(rec.Note(1))
	model := ""
	if note == "" {
		log.Debug("Note1 is empty, cannot extract model")
	} else {
		var method ModelMethod
		model, method = ExtractModel(note)
		if method == ModelNone {
			log.Warnf("Could not extract model from note1: %s", note)
		} else {
			log.Debugf("Extracted model using method %d: %q", method, model)
		}
	}

	title := BuildTitle(rec.Producer, model, rec.Name, strings.TrimSpace(rec.ID))
	if strings.TrimSpace(rec.Producer) == "" && model == "" {
		log.Warnf("No producer or model found, using fallback title: %s", title)
	}
	return title
}

func (t *Transformer) applyStock(ctx context.Context, p *domain.CatalogProduct, rec *domain.ProductRecord, isUpdate bool) {
	stock, ok := StockFor(rec.Qty)
	if !ok {
		return
	}
	log := t.logger.Inherit(ctx)

	oldQty, oldStatus := "", p.StockStatus
	if p.StockQuantity != nil {
		oldQty = fmt.Sprint(*p.StockQuantity)
	}

	qty := stock.Quantity
	p.StockQuantity = &qty
	p.ManageStock = true
	p.StockStatus = stock.Status

	if isUpdate {
		log.Infof("Updated stock quantity: %s -> %d (status: %s -> %s)", oldQty, qty, oldStatus, stock.Status)
	} else {
		log.Debugf("Set stock quantity: %d (status: %s)", qty, stock.Status)
	}
}

func (t *Transformer) applyPrices(ctx context.Context, p *domain.CatalogProduct, rec *domain.ProductRecord, isUpdate bool) {
	prices, ok := PricesFor(rec.Price, rec.OldPrice, t.cfg.TaxRate)
	if !ok {
		return
	}
	log := t.logger.Inherit(ctx)

	oldRegular, oldSale := formatPrice(p.RegularPrice), formatPrice(p.SalePrice)
	regular, sale := prices.Regular, prices.Sale
	p.RegularPrice = &regular
	p.SalePrice = &sale

	if isUpdate {
		log.Infof("Updated prices - Regular: %s -> %s, Sale: %s -> %s",
			oldRegular, formatPrice(&regular), oldSale, formatPrice(&sale))
	} else {
		log.Debugf("Set prices - Regular: %s, Sale: %s", formatPrice(&regular), formatPrice(&sale))
	}
}

func (t *Transformer) applyShippingClass(ctx context.Context, p *domain.CatalogProduct) {
	log := t.logger.Inherit(ctx)

	term, err := t.terms.BySlug(ctx, domain.TaxonomyShippingClass, t.cfg.ShippingClass)
	if err != nil {
		log.WithError(err).Warnf("Failed to look up shipping class %q", t.cfg.ShippingClass)
		return
	}
	if term == nil {
		log.Warnf("Shipping class %q not found - please create it first", t.cfg.ShippingClass)
		return
	}
	id := term.ID
	p.ShippingClassID = &id
	log.Debugf("Assigned shipping class %q (ID: %d)", t.cfg.ShippingClass, term.ID)
}

func (t *Transformer) storeMeta(ctx context.Context, productID uint, rec *domain.ProductRecord) error {
	entries, err := BuildMeta(rec, t.cfg.MetaPrefix, t.cfg.Source, t.now())
	if err != nil {
		return fmt.Errorf("failed to build metadata: %w", err)
	}
	if err := t.store.SetMeta(ctx, productID, entries); err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}
	t.logger.Inherit(ctx).Debugf("Stored vendor meta data for product %d", productID)
	return nil
}

// term resolves a term and logs instead of failing on mapping misses.
func (t *Transformer) term(ctx context.Context, taxonomy, name string) *domain.Term {
	term, err := t.terms.GetOrCreate(ctx, taxonomy, name)
	if err != nil {
		if errors.Is(err, ErrTaxonomyMissing) {
			t.logger.Inherit(ctx).Warnf("Taxonomy does not exist: %s", taxonomy)
		} else {
			t.logger.Inherit(ctx).WithError(err).Warnf("Failed to create/find term %q in %s", name, taxonomy)
		}
		return nil
	}
	return term
}

func (t *Transformer) assignProductBrand(ctx context.Context, productID uint, producer string) {
	log := t.logger.Inherit(ctx)
	producer = strings.TrimSpace(producer)

	term := t.term(ctx, domain.TaxonomyBrand, producer)
	if term == nil {
		return
	}
	if err := t.store.AssignTerm(ctx, productID, term); err != nil {
		log.WithError(err).Errorf("Brand assignment failed for product %d", productID)
		return
	}
	log.Debugf("Brand '%s' assigned to product %d", producer, productID)
}

func (t *Transformer) assignCategory(ctx context.Context, productID uint, groupID string) {
	log := t.logger.Inherit(ctx)

	slug, ok := CategorySlug(groupID)
	if !ok {
		log.Warnf("No category mapping found for group ID: %s", groupID)
		return
	}
	term, err := t.terms.BySlug(ctx, domain.TaxonomyCategory, slug)
	if err != nil || term == nil {
		log.Warnf("Category not found for slug: %s (group ID: %s)", slug, groupID)
		return
	}
	if err := t.store.AssignTerm(ctx, productID, term); err != nil {
		log.WithError(err).Warnf("Failed to assign category %s", slug)
		return
	}
	log.Debugf("Assigned to category: %s (slug: %s)", term.Name, slug)
}

// setImage reports whether the product's image was set.
func (t *Transformer) setImage(ctx context.Context, p *domain.CatalogProduct, imageURL string) bool {
	if t.images == nil {
		return false
	}
	log := t.logger.Inherit(ctx)

	id, reused, err := t.images.Resolve(ctx, p.SKU, imageURL, p.Name)
	if err != nil {
		log.WithError(err).Warnf("Failed to upload image from URL: %s", imageURL)
		return false
	}
	p.ImageID = &id
	if reused {
		log.Debugf("Reused existing image (ID: %d) for XML product ID: %s", id, p.SKU)
	} else {
		log.Debugf("Set product image from URL: %s (new upload ID: %d)", imageURL, id)
	}
	return true
}

func (t *Transformer) applyAttributes(ctx context.Context, productID uint, params domain.ParamList) error {
	log := t.logger.Inherit(ctx)

	var attrs []domain.ProductAttribute
	index := make(map[string]int)
	for _, param := range params {
		value := strings.TrimSpace(param.Value)
		key, ok := AttributeMapping[param.ID]
		if value == "" || !ok {
			continue
		}

		taxonomy := domain.AttributeTaxonomy(key)
		formatted := FormatAttributeValue(key, value)
		term := t.term(ctx, taxonomy, formatted)
		if term == nil {
			continue
		}
		if err := t.store.AssignTerm(ctx, productID, term); err != nil {
			return fmt.Errorf("failed to assign attribute %s: %w", key, err)
		}

		attr := domain.ProductAttribute{
			ProductID: productID,
			Taxonomy:  taxonomy,
			TermID:    term.ID,
			IsVisible: true,
		}
		if i, seen := index[taxonomy]; seen {
			attr.Position = attrs[i].Position
			attrs[i] = attr
		} else {
			attr.Position = len(attrs)
			index[taxonomy] = len(attrs)
			attrs = append(attrs, attr)
		}
		log.Debugf("Set attribute %s: %s (term ID: %d)", key, formatted, term.ID)
	}

	if len(attrs) == 0 {
		return nil
	}
	if err := t.store.SetAttributes(ctx, productID, attrs); err != nil {
		return fmt.Errorf("failed to set attributes: %w", err)
	}
	log.Debugf("Set %d product attributes", len(attrs))
	return nil
}
