package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const rateColumns = `id, classification, role, stage, area_from, area_to, city, price_per_m2, fixed_price`

// RateRepository implements port.RateRepository
type RateRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *sqlite.DB, logger *zap.Logger) port.RateRepository {
	return &RateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a tariff row
func (r *RateRepository) Create(ctx context.Context, rate *entity.Rate) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO rates (classification, role, stage, area_from, area_to, city, price_per_m2, fixed_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.Classification, rate.Role, rate.Stage,
		nullFloat(rate.AreaFrom), nullFloat(rate.AreaTo),
		rate.City, rate.PricePerM2, rate.FixedPrice)
	if err != nil {
		return fmt.Errorf("failed to create rate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rate.ID = id
	return nil
}

// ListByRole returns the tariff rows of one role, case-insensitively
func (r *RateRepository) ListByRole(ctx context.Context, role string) ([]entity.Rate, error) {
	return r.query(ctx, `SELECT `+rateColumns+` FROM rates WHERE role = ? COLLATE NOCASE ORDER BY id`, role)
}

// List returns the whole tariff table
func (r *RateRepository) List(ctx context.Context) ([]entity.Rate, error) {
	return r.query(ctx, `SELECT `+rateColumns+` FROM rates ORDER BY id`)
}

// ReplaceAll swaps the tariff table atomically
func (r *RateRepository) ReplaceAll(ctx context.Context, rates []entity.Rate) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM rates`); err != nil {
			return fmt.Errorf("failed to clear rates: %w", err)
		}
		for i := range rates {
			if err := r.Create(ctx, &rates[i]); err != nil {
				return err
			}
		}
		r.logger.Info("Rate table replaced", zap.Int("rows", len(rates)))
		return nil
	})
}

func (r *RateRepository) query(ctx context.Context, query string, args ...interface{}) ([]entity.Rate, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	var out []entity.Rate
	for rows.Next() {
		var rate entity.Rate
		var from, to sql.NullFloat64
		if err := rows.Scan(&rate.ID, &rate.Classification, &rate.Role, &rate.Stage,
			&from, &to, &rate.City, &rate.PricePerM2, &rate.FixedPrice); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rate.AreaFrom = floatPtr(from)
		rate.AreaTo = floatPtr(to)
		out = append(out, rate)
	}
	return out, rows.Err()
}
