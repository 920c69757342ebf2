package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// BalanceRepository reads the derived inventory_balances table. Writes go
// through Projector only.
type BalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository builds a repository tied to the provided GORM DB.
func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *BalanceRepository) WithTx(tx *gorm.DB) *BalanceRepository {
	if tx == nil {
		return r
	}
	return &BalanceRepository{db: tx}
}

// ListByPartIDs returns the balances keyed by part id. Parts without a row are
// absent from the map.
func (r *BalanceRepository) ListByPartIDs(ctx context.Context, partIDs []uuid.UUID, lock bool) (map[uuid.UUID]models.InventoryBalance, error) {
	out := make(map[uuid.UUID]models.InventoryBalance, len(partIDs))
	if len(partIDs) == 0 {
		return out, nil
	}
	query := r.db.WithContext(ctx).Where("part_id IN ?", partIDs).Order("part_id ASC")
	if lock {
		query = db.ForUpdate(query)
	}
	var rows []models.InventoryBalance
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PartID] = row
	}
	return out, nil
}

// PartNames resolves display names for the given parts.
func (r *BalanceRepository) PartNames(ctx context.Context, partIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(partIDs))
	if len(partIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   uuid.UUID
		Name string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Select("id, name").
		Where("id IN ?", partIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

// PartIDsAfter pages through every part id in ascending order, starting after
// the given id.
func (r *BalanceRepository) PartIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
