package catalog

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/timmy/catalogsync/internal/domain"
)

const (
	metaImportedFrom = "imported-from"
	metaParamsKey    = "params"
	metaImportedAt   = "imported_at"
	metaTimeLayout   = "2006-01-02 15:04:05"
)

// BuildMeta returns the vendor metadata stored on every imported product:
// each non-empty feed field under prefix, the params list as JSON, the
// import time and the imported-from marker.
func BuildMeta(rec *domain.ProductRecord, prefix, source string, now time.Time) ([]domain.ProductMeta, error) {
	entries := []domain.ProductMeta{{Key: metaImportedFrom, Value: source}}

	for _, f := range rec.Fields() {
		entries = append(entries, domain.ProductMeta{
			Key:   prefix + f.Name,
			Value: strings.TrimSpace(f.Value),
		})
	}

	if len(rec.Params) > 0 {
		data, err := json.Marshal(rec.Params)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.ProductMeta{Key: prefix + metaParamsKey, Value: string(data)})
	}

	entries = append(entries, domain.ProductMeta{
		Key:   prefix + metaImportedAt,
		Value: now.Format(metaTimeLayout),
	})
	return entries, nil
}
