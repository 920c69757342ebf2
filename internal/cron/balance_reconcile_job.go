package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox/payloads"
)

const defaultReconcileBatch = 200

type BalanceReconcileJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Balances  balanceStore
	Projector balanceProjector
	Emitter   outbox.Emitter
	Metrics   *metrics.CronMetrics
	BatchSize int
	// ReportOnly logs drifted parts without recomputing them.
	ReportOnly bool
}

type balanceStore interface {
	PartIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	WithTx(tx *gorm.DB) *inventory.BalanceRepository
}

type balanceProjector interface {
	Replay(ctx context.Context, tx *gorm.DB, partIDs ...uuid.UUID) ([]inventory.Replay, error)
	Recompute(ctx context.Context, tx *gorm.DB, partIDs ...uuid.UUID) error
}

// NewBalanceReconcileJob builds the job that replays the ledger for every part
// and repairs stored balances that drifted from it.
func NewBalanceReconcileJob(params BalanceReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if params.Projector == nil {
		return nil, fmt.Errorf("balance projector required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &balanceReconcileJob{
		logg:       params.Logger,
		db:         params.DB,
		balances:   params.Balances,
		projector:  params.Projector,
		emitter:    params.Emitter,
		metrics:    params.Metrics,
		batch:      batch,
		reportOnly: params.ReportOnly,
	}, nil
}

type balanceReconcileJob struct {
	logg       *logger.Logger
	db         txRunner
	balances   balanceStore
	projector  balanceProjector
	emitter    outbox.Emitter
	metrics    *metrics.CronMetrics
	batch      int
	reportOnly bool
}

func (j *balanceReconcileJob) Name() string { return "balance-reconcile" }

// Run walks every part in batches. A failed repair does not stop the run; all
// failures are returned together.
func (j *balanceReconcileJob) Run(ctx context.Context) error {
	var (
		errs     error
		checked  int
		detected int
		repaired int
		after    = uuid.Nil
	)
	for {
		ids, err := j.balances.PartIDsAfter(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list parts: %w", err))
		}
		if len(ids) == 0 {
			break
		}
		after = ids[len(ids)-1]
		checked += len(ids)

		drifted, err := j.findDrift(ctx, ids)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		detected += len(drifted)
		if j.reportOnly {
			for _, partID := range drifted {
				j.logg.Warn(j.logg.WithField(ctx, "part_id", partID.String()), "balance drift detected")
			}
			drifted = nil
		}
		for _, partID := range drifted {
			fixed, err := j.repair(ctx, partID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("repair part %s: %w", partID, err))
				continue
			}
			if fixed {
				repaired++
			}
		}
		if len(ids) < j.batch {
			break
		}
	}

	j.metrics.AddDrift(detected, repaired)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"parts_checked":  checked,
		"parts_drifted":  detected,
		"parts_repaired": repaired,
		"failures":       len(multierr.Errors(errs)),
	})
	if repaired > 0 {
		j.logg.Warn(logCtx, "balance drift repaired")
	} else {
		j.logg.Info(logCtx, "balance reconciliation complete")
	}
	return errs
}

// findDrift compares a batch of stored balances with ledger replay without
// holding locks.
func (j *balanceReconcileJob) findDrift(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var drifted []uuid.UUID
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		replays, err := j.projector.Replay(ctx, tx, ids...)
		if err != nil {
			return fmt.Errorf("replay ledger: %w", err)
		}
		stored, err := j.balances.WithTx(tx).ListByPartIDs(ctx, ids, false)
		if err != nil {
			return fmt.Errorf("load balances: %w", err)
		}
		for _, replay := range replays {
			if !matches(stored, replay) {
				drifted = append(drifted, replay.PartID)
			}
		}
		return nil
	})
	return drifted, err
}

// repair re-checks one part under lock and recomputes it when it still drifts.
func (j *balanceReconcileJob) repair(ctx context.Context, partID uuid.UUID) (bool, error) {
	fixed := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		stored, err := j.balances.WithTx(tx).ListByPartIDs(ctx, []uuid.UUID{partID}, true)
		if err != nil {
			return err
		}
		replays, err := j.projector.Replay(ctx, tx, partID)
		if err != nil {
			return err
		}
		if len(replays) == 0 || matches(stored, replays[0]) {
			return nil
		}
		if err := j.projector.Recompute(ctx, tx, partID); err != nil {
			return err
		}
		fixed = true
		return j.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceDriftRepair,
			AggregateType: enums.AggregatePart,
			AggregateID:   partID,
			Data: payloads.BalanceDriftRepairedEvent{
				PartID:            partID,
				StoredAvailable:   stored[partID].Available,
				ReplayedAvailable: replays[0].Available(),
			},
		})
	})
	return fixed, err
}

func matches(stored map[uuid.UUID]models.InventoryBalance, replay inventory.Replay) bool {
	row, ok := stored[replay.PartID]
	if !ok {
		return false
	}
	return row.Available == replay.Available() &&
		row.TotalIn == replay.TotalIn &&
		row.TotalOut == replay.TotalOut
}
