package catalog

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/storage"
	_ "golang.org/x/image/webp"
)

// AssetRepository persists the external id -> stored asset mapping.
type AssetRepository interface {
	// FindByExternalID returns nil, nil when there is no mapping.
	FindByExternalID(ctx context.Context, externalID string) (*domain.ImageAsset, error)
	Create(ctx context.Context, asset *domain.ImageAsset) error
	Delete(ctx context.Context, id uint) error
}

// Downloader fetches image bytes from a URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPDownloader downloads images over HTTP.
type HTTPDownloader struct {
	client *resty.Client
}

// NewHTTPDownloader creates a downloader with the given request timeout.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	client := resty.New()
	client.SetTimeout(timeout)
	return &HTTPDownloader{client: client}
}

// Download implements Downloader.
func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("image download returned HTTP %d", resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("image download returned empty body")
	}
	return resp.Body(), nil
}

// ImageIndex stores product images once per SKU and reuses them afterwards.
type ImageIndex struct {
	assets     AssetRepository
	objects    storage.ObjectStorage
	downloader Downloader
	logger     *logger.Logger
}

// NewImageIndex creates an ImageIndex.
func NewImageIndex(assets AssetRepository, objects storage.ObjectStorage, downloader Downloader, log *logger.Logger) *ImageIndex {
	if log == nil {
		log = logger.GetDefault()
	}
	return &ImageIndex{
		assets:     assets,
		objects:    objects,
		downloader: downloader,
		logger:     log,
	}
}

// Resolve returns the asset id for the product's image. A stored asset
// keyed by sku is reused while it is still valid; otherwise imageURL is
// downloaded, stored and recorded under sku.
// Returns:
//   - uint: asset id.
//   - bool: true when an existing asset was reused.
//   - error: download, validation or storage failure.
func (x *ImageIndex) Resolve(ctx context.Context, sku, imageURL, productName string) (uint, bool, error) {
	log := x.logger.Inherit(ctx)

	existing, err := x.assets.FindByExternalID(ctx, sku)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up image for %s: %w", sku, err)
	}
	if existing != nil {
		if x.valid(ctx, existing) {
			return existing.ID, true, nil
		}
		if err := x.assets.Delete(ctx, existing.ID); err != nil {
			return 0, false, fmt.Errorf("failed to discard stale image mapping: %w", err)
		}
		log.Debugf("Cleaned up invalid image meta for XML product ID: %s", sku)
	}

	asset, err := x.store(ctx, sku, imageURL, productName)
	if err != nil {
		return 0, false, err
	}
	return asset.ID, false, nil
}

// valid reports whether the mapped asset still points at a stored object
// that decodes as an image.
func (x *ImageIndex) valid(ctx context.Context, asset *domain.ImageAsset) bool {
	if !strings.HasPrefix(asset.ContentType, "image/") || asset.StorageKey == "" {
		return false
	}
	rc, err := x.objects.Download(ctx, asset.StorageKey)
	if err != nil {
		return false
	}
	defer rc.Close()
	_, _, err = image.DecodeConfig(rc)
	return err == nil
}

func (x *ImageIndex) store(ctx context.Context, sku, imageURL, productName string) (*domain.ImageAsset, error) {
	data, err := x.downloader.Download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("downloaded file is not a valid image: %w", err)
	}

	key := imageStorageKey(sku, imageURL, format)
	contentType := imageContentType(format)
	if err := x.objects.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	asset := &domain.ImageAsset{
		ExternalID:  sku,
		StorageKey:  key,
		SourceURL:   imageURL,
		Title:       strings.TrimSpace(productName + " - Product Image"),
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FileSize:    int64(len(data)),
	}
	if err := x.assets.Create(ctx, asset); err != nil {
		// Rollback: the object is unreachable without its mapping
		if delErr := x.objects.Delete(ctx, key); delErr != nil {
			x.logger.Inherit(ctx).WithField("storage_key", key).WithError(delErr).Error("Failed to rollback image upload")
		}
		return nil, fmt.Errorf("failed to record image: %w", err)
	}
	return asset, nil
}

// imageStorageKey builds products/<sku>/<basename of the url>.
func imageStorageKey(sku, imageURL, format string) string {
	base := ""
	if u, err := url.Parse(imageURL); err == nil {
		base = path.Base(u.Path)
	}
	base = Slugify(strings.TrimSuffix(base, path.Ext(base)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("products/%s/%s.%s", Slugify(sku), base, imageExtension(format))
}

func imageExtension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func imageContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
