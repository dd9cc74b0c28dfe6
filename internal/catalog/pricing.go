package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/timmy/catalogsync/internal/domain"
)

// DefaultTaxRate is the VAT included in feed prices.
const DefaultTaxRate = 0.21

// Prices are the tax-exclusive catalog prices derived from a feed record.
type Prices struct {
	Regular float64
	Sale    float64
}

// Stock is the managed stock state derived from a feed record.
type Stock struct {
	Quantity int
	Status   domain.StockStatus
}

// PriceExTax removes tax at rate from a tax-inclusive price and rounds to cents.
func PriceExTax(gross, rate float64) float64 {
	return math.Round(gross/(1+rate)*100) / 100
}

// PricesFor derives prices from the feed's price and oldprice fields. The
// second result is false when price is not numeric, in which case prices
// are left untouched.
func PricesFor(price, oldPrice string, rate float64) (Prices, bool) {
	gross, ok := parseNumeric(price)
	if !ok {
		return Prices{}, false
	}
	sale := PriceExTax(gross, rate)
	p := Prices{Regular: sale, Sale: sale}
	if old, ok := parseNumeric(oldPrice); ok {
		p.Regular = PriceExTax(old, rate)
	}
	return p, true
}

// StockFor derives stock from the feed's qty field. Quantity and status are
// always set together; the second result is false when qty is not numeric.
func StockFor(qty string) (Stock, bool) {
	n, ok := parseNumeric(qty)
	if !ok {
		return Stock{}, false
	}
	n = math.Max(math.Min(n, math.MaxInt32), math.MinInt32)
	s := Stock{Quantity: int(n), Status: domain.StockStatusOutOfStock}
	if s.Quantity > 0 {
		s.Status = domain.StockStatusInStock
	}
	return s, true
}

// parseNumeric accepts plain decimal numbers with optional sign, fraction
// and exponent. Hex, inf and nan are rejected.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func isNumeric(s string) bool {
	_, ok := parseNumeric(s)
	return ok
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
