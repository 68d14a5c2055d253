// Package ratesheet loads tariff tables from XLSX workbooks.
package ratesheet

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
)

// Column headers recognised on the first row. Order does not matter and
// unknown headers are ignored.
const (
	HeaderClassification = "classification"
	HeaderRole           = "role"
	HeaderStage          = "stage"
	HeaderAreaFrom       = "area_from"
	HeaderAreaTo         = "area_to"
	HeaderCity           = "city"
	HeaderPricePerM2     = "price_per_m2"
	HeaderFixedPrice     = "fixed_price"
)

// Parse reads rate rows from the first sheet of a workbook
func Parse(r io.Reader) ([]entity.Rate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[HeaderRole]; !ok {
		return nil, fmt.Errorf("sheet %q has no %q column", sheets[0], HeaderRole)
	}

	var rates []entity.Rate
	for n, row := range rows[1:] {
		line := n + 2
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlank(row) {
			continue
		}

		rate := entity.Rate{
			Classification: strings.ToLower(cell(HeaderClassification)),
			Role:           strings.ToLower(cell(HeaderRole)),
			Stage:          cell(HeaderStage),
			City:           cell(HeaderCity),
		}
		if rate.Role == "" {
			return nil, fmt.Errorf("row %d: role is required", line)
		}
		if rate.Classification != "" && !entity.IsValidClassification(rate.Classification) {
			return nil, fmt.Errorf("row %d: unknown classification %q", line, rate.Classification)
		}

		if rate.AreaFrom, err = optionalNumber(cell(HeaderAreaFrom)); err != nil {
			return nil, fmt.Errorf("row %d: area_from: %w", line, err)
		}
		if rate.AreaTo, err = optionalNumber(cell(HeaderAreaTo)); err != nil {
			return nil, fmt.Errorf("row %d: area_to: %w", line, err)
		}
		if rate.AreaFrom != nil && rate.AreaTo != nil && *rate.AreaFrom > *rate.AreaTo {
			return nil, fmt.Errorf("row %d: area_from exceeds area_to", line)
		}
		if rate.PricePerM2, err = number(cell(HeaderPricePerM2)); err != nil {
			return nil, fmt.Errorf("row %d: price_per_m2: %w", line, err)
		}
		if rate.FixedPrice, err = number(cell(HeaderFixedPrice)); err != nil {
			return nil, fmt.Errorf("row %d: fixed_price: %w", line, err)
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// Importer replaces the stored tariff table with the rows of a workbook
type Importer struct {
	rates  port.RateRepository
	logger *zap.Logger
}

// NewImporter creates a new importer
func NewImporter(rates port.RateRepository, logger *zap.Logger) *Importer {
	return &Importer{rates: rates, logger: logger}
}

// ImportFile parses the workbook at path and swaps it in as the tariff table
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import parses a workbook from r and swaps it in as the tariff table
func (im *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	rates, err := Parse(r)
	if err != nil {
		return 0, err
	}
	if err := im.rates.ReplaceAll(ctx, rates); err != nil {
		return 0, fmt.Errorf("failed to store rates: %w", err)
	}
	im.logger.Info("Rate table imported", zap.Int("rows", len(rates)))
	return len(rates), nil
}

func number(s string) (float64, error) {
	v, err := optionalNumber(s)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

// optionalNumber accepts a decimal comma and thousands spaces
func optionalNumber(s string) (*float64, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if v < 0 {
		return nil, fmt.Errorf("negative number %q", s)
	}
	return &v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
