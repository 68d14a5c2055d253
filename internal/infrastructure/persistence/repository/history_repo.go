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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit entry
func (r *HistoryRepository) Create(ctx context.Context, h *entity.History) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now()
	}
	if h.Details == "" {
		h.Details = "{}"
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO history (contract_id, card_id, action, actor_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ContractID, nullInt(h.CardID), h.Action, nullInt(h.ActorID), h.Details, h.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("contract_id", h.ContractID),
			zap.String("action", h.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	return nil
}

// ListByContract returns the audit trail of a contract, oldest first
func (r *HistoryRepository) ListByContract(ctx context.Context, contractID int64) ([]*entity.History, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, contract_id, card_id, action, actor_id, details, created_at
		FROM history WHERE contract_id = ? ORDER BY id`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []*entity.History
	for rows.Next() {
		var h entity.History
		var cardID, actorID sql.NullInt64
		if err := rows.Scan(&h.ID, &h.ContractID, &cardID, &h.Action, &actorID, &h.Details, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.CardID = intPtr(cardID)
		h.ActorID = intPtr(actorID)
		out = append(out, &h)
	}
	return out, rows.Err()
}
