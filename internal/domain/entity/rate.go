package entity

// Rate is one tariff row. Which price column applies depends on the
// lookup strategy for the contract classification.
type Rate struct {
	ID             int64    `json:"id"`
	Classification string   `json:"classification,omitempty"`
	Role           string   `json:"role"`
	Stage          string   `json:"stage,omitempty"`
	AreaFrom       *float64 `json:"area_from,omitempty"`
	AreaTo         *float64 `json:"area_to,omitempty"`
	City           string   `json:"city,omitempty"`
	PricePerM2     float64  `json:"price_per_m2,omitempty"`
	FixedPrice     float64  `json:"fixed_price,omitempty"`
}

// CoversArea reports whether area falls in [AreaFrom, AreaTo].
// A nil bound is open.
func (r *Rate) CoversArea(area float64) bool {
	if r.AreaFrom != nil && area < *r.AreaFrom {
		return false
	}
	if r.AreaTo != nil && area > *r.AreaTo {
		return false
	}
	return true
}
