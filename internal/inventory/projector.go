package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// Replay is the balance of one part computed from its full activity history.
type Replay struct {
	PartID   uuid.UUID
	TotalIn  int
	TotalOut int
}

// Available is the signed sum of the replayed ledger.
func (r Replay) Available() int {
	return r.TotalIn - r.TotalOut
}

// Projector rebuilds inventory_balances from the activity ledger. It runs
// inside the transaction that appended the activities, so the balance is
// current before commit.
type Projector struct {
	inbound  []string
	outbound []string
}

// NewProjector derives the replay expression from the activity sign table.
func NewProjector() *Projector {
	p := &Projector{}
	for _, eventType := range enums.ActivityEventTypes() {
		switch eventType.Direction() {
		case 1:
			p.inbound = append(p.inbound, string(eventType))
		case -1:
			p.outbound = append(p.outbound, string(eventType))
		}
	}
	return p
}

// Replay sums the ledger for the given parts. Parts with no activities come
// back with zero totals.
func (p *Projector) Replay(ctx context.Context, tx *gorm.DB, partIDs ...uuid.UUID) ([]Replay, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	ids := uniqueSorted(partIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []Replay
	err := tx.WithContext(ctx).
		Model(&models.Activity{}).
		Select(
			"part_id, "+
				"COALESCE(SUM(CASE WHEN CAST(event_type AS TEXT) IN ? THEN qty ELSE 0 END), 0) AS total_in, "+
				"COALESCE(SUM(CASE WHEN CAST(event_type AS TEXT) IN ? THEN qty ELSE 0 END), 0) AS total_out",
			p.inbound, p.outbound,
		).
		Where("part_id IN ?", ids).
		Group("part_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byPart := make(map[uuid.UUID]Replay, len(rows))
	for _, row := range rows {
		byPart[row.PartID] = row
	}
	out := make([]Replay, 0, len(ids))
	for _, id := range ids {
		row, ok := byPart[id]
		if !ok {
			row = Replay{PartID: id}
		}
		out = append(out, row)
	}
	return out, nil
}

// Recompute locks the balance rows of the given parts, replays the ledger and
// writes the result. The replay runs after the lock is granted, so it sees
// every activity committed by writers that held the lock before this one.
func (p *Projector) Recompute(ctx context.Context, tx *gorm.DB, partIDs ...uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	ids := uniqueSorted(partIDs)
	if len(ids) == 0 {
		return nil
	}
	if err := lockBalances(ctx, tx, ids); err != nil {
		return err
	}

	replays, err := p.Replay(ctx, tx, ids...)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	balances := make([]models.InventoryBalance, 0, len(replays))
	for _, replay := range replays {
		balances = append(balances, models.InventoryBalance{
			PartID:    replay.PartID,
			Available: replay.Available(),
			TotalIn:   replay.TotalIn,
			TotalOut:  replay.TotalOut,
			UpdatedAt: now,
		})
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "part_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"available", "total_in", "total_out", "updated_at"}),
		}).
		Create(&balances).Error
}

// lockBalances creates missing balance rows and takes their row locks in
// part_id order. ids must already be sorted.
func lockBalances(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	now := time.Now().UTC()
	seed := make([]models.InventoryBalance, 0, len(ids))
	for _, id := range ids {
		seed = append(seed, models.InventoryBalance{PartID: id, UpdatedAt: now})
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "part_id"}}, DoNothing: true}).
		Create(&seed).Error; err != nil {
		return fmt.Errorf("seed balances: %w", err)
	}
	if _, err := NewBalanceRepository(tx).ListByPartIDs(ctx, ids, true); err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}
	return nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
