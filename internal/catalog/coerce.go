package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// coerceProduct converts a raw upstream record into a typed Product. Malformed
// numeric fields default per the boundary rules (prices and tax to zero,
// optional integers to absent) and are reported as diagnostics rather than
// failing the record; the returned error aggregates every coercion problem so
// callers can log them in one pass.
func coerceProduct(raw rawProduct) (Product, error) {
	var diags error

	id := coerceID(raw.ID)
	if id == "" {
		return Product{}, fmt.Errorf("product record missing id")
	}

	p := Product{
		ID:       id,
		Name:     strings.TrimSpace(raw.Name),
		ImageURL: strings.TrimSpace(raw.Image),
	}

	if price, ok, err := coerceFloat(raw.Price); err != nil {
		diags = multierr.Append(diags, fmt.Errorf("product %s: price: %w", id, err))
	} else if ok {
		if price < 0 {
			diags = multierr.Append(diags, fmt.Errorf("product %s: price is negative", id))
		} else {
			p.BasePrice = price
		}
	}

	discounted, discountedOK, err := coerceFloat(raw.PriceAfterDiscount)
	if err != nil {
		diags = multierr.Append(diags, fmt.Errorf("product %s: priceAfterDiscount: %w", id, err))
		discountedOK = false
	}
	if discountedOK && discounted < 0 {
		diags = multierr.Append(diags, fmt.Errorf("product %s: priceAfterDiscount is negative", id))
		discountedOK = false
	}
	if discountedOK {
		p.DiscountedPrice = &discounted
	}

	if threshold, ok, err := coerceInt(raw.DiscountQuantity); err != nil {
		diags = multierr.Append(diags, fmt.Errorf("product %s: discountQuantity: %w", id, err))
	} else if ok {
		if threshold <= 0 {
			diags = multierr.Append(diags, fmt.Errorf("product %s: discountQuantity must be positive", id))
		} else {
			p.DiscountThreshold = &threshold
		}
	}

	if rate, ok, err := coerceFloat(raw.TaxRate); err != nil {
		diags = multierr.Append(diags, fmt.Errorf("product %s: taxRate: %w", id, err))
	} else if ok {
		if rate < 0 || rate > 1 {
			diags = multierr.Append(diags, fmt.Errorf("product %s: taxRate %v outside [0,1]", id, rate))
		} else {
			p.TaxRate = rate
		}
	}

	if cap, ok, err := coerceInt(raw.PurchaseCap); err != nil {
		diags = multierr.Append(diags, fmt.Errorf("product %s: purchaseCap: %w", id, err))
	} else if ok {
		if cap <= 0 {
			diags = multierr.Append(diags, fmt.Errorf("product %s: purchaseCap must be positive", id))
		} else {
			p.PurchaseCap = &cap
		}
	}

	return p, diags
}

// coerceID accepts string or numeric ids and normalizes them to a string.
func coerceID(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// coerceFloat accepts a JSON number, a numeric string, or null/absent.
// ok is false when the field is absent; err reports unparseable values.
func coerceFloat(raw json.RawMessage) (float64, bool, error) {
	if isAbsent(raw) {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("non-numeric value %q", s)
		}
		return f, true, nil
	}
	return 0, false, fmt.Errorf("unsupported JSON type %s", compact(raw))
}

func coerceInt(raw json.RawMessage) (int, bool, error) {
	f, ok, err := coerceFloat(raw)
	if err != nil || !ok {
		return 0, ok, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, false, fmt.Errorf("value %v is not an integer", f)
	}
	return n, true, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func compact(raw json.RawMessage) string {
	s := string(bytes.TrimSpace(raw))
	if len(s) > 32 {
		s = s[:32] + "..."
	}
	return s
}
