package domain

import "time"

// StockStatus is the availability flag of a catalog product.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "instock"
	StockStatusOutOfStock StockStatus = "outofstock"
)

// Well-known taxonomy names.
const (
	TaxonomyCategory      = "product_cat"
	TaxonomyBrand         = "product_brand"
	TaxonomyShippingClass = "product_shipping_class"
	AttributePrefix       = "pa_"
)

// AttributeTaxonomy returns the taxonomy name of an attribute key, e.g. "pa_width".
func AttributeTaxonomy(key string) string {
	return AttributePrefix + key
}

// CatalogProduct is a product in the catalog store, identified by SKU.
type CatalogProduct struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	SKU             string      `gorm:"type:text;not null;uniqueIndex:idx_products_sku" json:"sku"`
	Name            string      `gorm:"type:text" json:"name"`
	Status          string      `gorm:"type:text;default:publish" json:"status"`
	EAN             string      `gorm:"type:text" json:"ean,omitempty"`
	Brand           string      `gorm:"type:text" json:"brand,omitempty"`
	ManageStock     bool        `json:"manage_stock"`
	StockQuantity   *int        `json:"stock_quantity,omitempty"`
	StockStatus     StockStatus `gorm:"type:text" json:"stock_status,omitempty"`
	RegularPrice    *float64    `json:"regular_price,omitempty"`
	SalePrice       *float64    `json:"sale_price,omitempty"`
	ShippingClassID *uint       `json:"shipping_class_id,omitempty"`
	ImageID         *uint       `json:"image_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for CatalogProduct.
func (CatalogProduct) TableName() string {
	return "catalog_products"
}

// ProductMeta is one product-scoped key/value pair.
type ProductMeta struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_product_meta_key"`
	Key       string `gorm:"type:text;not null;uniqueIndex:idx_product_meta_key"`
	Value     string `gorm:"type:text"`
}

// TableName returns the database table name for ProductMeta.
func (ProductMeta) TableName() string {
	return "product_meta"
}

// Taxonomy registers a classification system terms can be created in.
type Taxonomy struct {
	Name      string    `gorm:"type:text;primaryKey" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Taxonomy.
func (Taxonomy) TableName() string {
	return "taxonomies"
}

// Term is a named value inside a taxonomy (category, brand, attribute value).
type Term struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Taxonomy  string    `gorm:"type:text;not null;uniqueIndex:idx_terms_name;index:idx_terms_slug" json:"taxonomy"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_terms_name" json:"name"`
	Slug      string    `gorm:"type:text;not null;index:idx_terms_slug" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Term.
func (Term) TableName() string {
	return "terms"
}

// ProductTerm links a product to a term.
type ProductTerm struct {
	ProductID uint   `gorm:"primaryKey"`
	TermID    uint   `gorm:"primaryKey"`
	Taxonomy  string `gorm:"type:text;not null;index"`
}

// TableName returns the database table name for ProductTerm.
func (ProductTerm) TableName() string {
	return "product_terms"
}

// ProductAttribute records a taxonomy-backed attribute shown on a product.
type ProductAttribute struct {
	ProductID   uint   `gorm:"primaryKey" json:"product_id"`
	Taxonomy    string `gorm:"type:text;primaryKey" json:"taxonomy"`
	TermID      uint   `json:"term_id"`
	Position    int    `json:"position"`
	IsVisible   bool   `json:"is_visible"`
	IsVariation bool   `json:"is_variation"`
}

// TableName returns the database table name for ProductAttribute.
func (ProductAttribute) TableName() string {
	return "product_attributes"
}

// ImageAsset maps an external image identifier to a stored asset.
type ImageAsset struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExternalID  string    `gorm:"type:text;not null;uniqueIndex:idx_image_assets_external" json:"external_id"`
	StorageKey  string    `gorm:"type:text;not null" json:"storage_key"`
	SourceURL   string    `gorm:"type:text" json:"source_url"`
	Title       string    `gorm:"type:text" json:"title"`
	ContentType string    `gorm:"type:text" json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for ImageAsset.
func (ImageAsset) TableName() string {
	return "image_assets"
}
