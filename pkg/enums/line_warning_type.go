package enums

// LineWarningType classifies soft problems attached to a quoted cart line.
type LineWarningType string

const (
	LineWarningTypeMissingCatalogData LineWarningType = "missing_catalog_data"
	LineWarningTypeInvalidNumeric     LineWarningType = "invalid_numeric"
	LineWarningTypePurchaseCap        LineWarningType = "purchase_cap_exceeded"
)

// String implements fmt.Stringer.
func (l LineWarningType) String() string {
	return string(l)
}
