// Package pricing computes stage payment amounts from tariff rows.
package pricing

import (
	"strings"

	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/pkg/utils"
)

// Query describes the work being priced
type Query struct {
	Classification string
	Role           string
	Stage          string
	Area           float64
	City           string
	IsSupervision  bool
}

// Result is the priced amount. Missing is set when no tariff row matched;
// the amount is then zero and the payment is still recorded.
type Result struct {
	Amount  float64
	Missing bool
	RateID  int64
}

// Calculate prices q against rates. rates may contain rows for any role;
// rows for other roles are ignored.
func Calculate(q Query, rates []entity.Rate) Result {
	candidates := forRole(rates, q.Role)

	switch {
	case same(q.Role, entity.RoleSurveyor):
		return byCity(candidates, q.City)
	case q.IsSupervision || q.Classification == entity.ClassificationSupervision:
		return perSquareMetre(inClass(candidates, entity.ClassificationSupervision), q.Stage, q.Area)
	case q.Classification == entity.ClassificationIndividual:
		return perSquareMetre(inClass(candidates, entity.ClassificationIndividual), q.Stage, q.Area)
	case q.Classification == entity.ClassificationTemplate:
		return byAreaRange(inClass(candidates, entity.ClassificationTemplate), q.Area)
	}
	return Result{Missing: true}
}

// Split divides an amount into two halves whose sum equals the rounded amount
func Split(amount float64) (first, second float64) {
	first = utils.RoundMoney(amount / 2)
	second = utils.RoundMoney(amount - first)
	return first, second
}

func byCity(rows []entity.Rate, city string) Result {
	for _, r := range rows {
		if same(r.City, city) {
			return Result{Amount: utils.RoundMoney(r.FixedPrice), RateID: r.ID}
		}
	}
	return Result{Missing: true}
}

func perSquareMetre(rows []entity.Rate, stage string, area float64) Result {
	r, ok := pickStage(rows, stage)
	if !ok {
		return Result{Missing: true}
	}
	return Result{Amount: utils.RoundMoney(r.PricePerM2 * area), RateID: r.ID}
}

// byAreaRange takes the first row whose range covers area. Template tariffs
// are keyed on role and area only; a stage on the row is ignored.
func byAreaRange(rows []entity.Rate, area float64) Result {
	for _, r := range rows {
		if r.CoversArea(area) {
			return Result{Amount: utils.RoundMoney(r.FixedPrice), RateID: r.ID}
		}
	}
	return Result{Missing: true}
}

// pickStage prefers the stage-specific row and falls back to the stage-independent one
func pickStage(rows []entity.Rate, stage string) (entity.Rate, bool) {
	var fallback *entity.Rate
	for i := range rows {
		switch {
		case stage != "" && same(rows[i].Stage, stage):
			return rows[i], true
		case rows[i].Stage == "" && fallback == nil:
			fallback = &rows[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return entity.Rate{}, false
}

func forRole(rates []entity.Rate, role string) []entity.Rate {
	var out []entity.Rate
	for _, r := range rates {
		if same(r.Role, role) {
			out = append(out, r)
		}
	}
	return out
}

func inClass(rates []entity.Rate, classification string) []entity.Rate {
	var out []entity.Rate
	for _, r := range rates {
		if r.Classification == classification {
			out = append(out, r)
		}
	}
	return out
}

func same(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
