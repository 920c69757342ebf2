package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox/payloads"
)

// DefaultActor is recorded when no actor name is supplied.
const DefaultActor = "System"

// Entry is one activity to append. Qty is a magnitude; the sign comes from
// EventType.
type Entry struct {
	EventType        enums.ActivityEventType
	PartID           *uuid.UUID
	Qty              int
	ActorName        string
	CounterpartyName *string
	Purpose          *string
	Project          *string
	ProjectID        *uuid.UUID
	ProductID        *uuid.UUID
	Notes            *string
	InvoiceNumber    *string
	InvoiceDate      *time.Time
	Timestamp        *time.Time
	Tags             []string
	CategoryName     *string
}

type balanceProjector interface {
	Recompute(ctx context.Context, tx *gorm.DB, partIDs ...uuid.UUID) error
}

// Writer appends activities and keeps inventory_balances in step inside the
// caller's transaction.
type Writer struct {
	repo      *Repository
	projector balanceProjector
	emitter   outbox.Emitter
	logg      *logger.Logger
}

// NewWriter wires the ledger writer.
func NewWriter(repo *Repository, projector balanceProjector, emitter outbox.Emitter, logg *logger.Logger) (*Writer, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if projector == nil {
		return nil, fmt.Errorf("balance projector required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Writer{repo: repo, projector: projector, emitter: emitter, logg: logg}, nil
}

// Append records a single activity.
func (w *Writer) Append(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Activity, error) {
	rows, err := w.AppendBatch(ctx, tx, []Entry{entry})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// AppendBatch records every entry in one insert, then recomputes the balances
// of the touched parts and queues one activity_recorded event per row.
func (w *Writer) AppendBatch(ctx context.Context, tx *gorm.DB, entries []Entry) ([]models.Activity, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if len(entries) == 0 {
		return nil, nil
	}

	rows := make([]models.Activity, 0, len(entries))
	partIDs := make([]uuid.UUID, 0, len(entries))
	for i, entry := range entries {
		if err := validateEntry(entry); err != nil {
			if len(entries) > 1 {
				return nil, pkgerrors.Wrap(pkgerrors.As(err).Code(), err, fmt.Sprintf("entry %d: %s", i, pkgerrors.As(err).Message()))
			}
			return nil, err
		}
		rows = append(rows, toModel(entry))
		if entry.PartID != nil {
			partIDs = append(partIDs, *entry.PartID)
		}
	}

	if err := w.repo.WithTx(tx).Insert(ctx, rows); err != nil {
		return nil, err
	}
	if len(partIDs) > 0 {
		if err := w.projector.Recompute(ctx, tx, partIDs...); err != nil {
			return nil, fmt.Errorf("recompute balances: %w", err)
		}
	}

	for _, row := range rows {
		if err := w.emitter.Emit(ctx, tx, recordedEvent(row)); err != nil {
			return nil, fmt.Errorf("queue activity event: %w", err)
		}
	}

	if w.logg != nil {
		logCtx := w.logg.WithFields(ctx, map[string]any{
			"activity_count": len(rows),
			"part_count":     len(partIDs),
		})
		w.logg.Debug(logCtx, "activities appended")
	}
	return rows, nil
}

func validateEntry(entry Entry) error {
	if !entry.EventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid event type %q", entry.EventType))
	}
	if entry.Qty < 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "qty must be a non-negative magnitude")
	}
	if entry.EventType.AffectsInventory() && entry.PartID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s requires a part", entry.EventType))
	}
	return nil
}

func toModel(entry Entry) models.Activity {
	actor := strings.TrimSpace(entry.ActorName)
	if actor == "" {
		actor = DefaultActor
	}
	return models.Activity{
		ID:               uuid.New(),
		EventType:        entry.EventType,
		PartID:           entry.PartID,
		Qty:              entry.Qty,
		ActorName:        actor,
		CounterpartyName: entry.CounterpartyName,
		Purpose:          entry.Purpose,
		Project:          entry.Project,
		ProjectID:        entry.ProjectID,
		ProductID:        entry.ProductID,
		Notes:            entry.Notes,
		InvoiceNumber:    entry.InvoiceNumber,
		InvoiceDate:      entry.InvoiceDate,
		Timestamp:        entry.Timestamp,
		Tags:             entry.Tags,
		CategoryName:     entry.CategoryName,
	}
}

func recordedEvent(row models.Activity) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventActivityRecorded,
		AggregateType: enums.AggregateActivity,
		AggregateID:   row.ID,
		Actor:         &outbox.ActorRef{Name: row.ActorName},
		Data: payloads.ActivityRecordedEvent{
			ActivityID: row.ID,
			EventType:  string(row.EventType),
			PartID:     row.PartID,
			Qty:        row.Qty,
			Delta:      row.EventType.Direction() * row.Qty,
			ProjectID:  row.ProjectID,
			ProductID:  row.ProductID,
			ActorName:  row.ActorName,
			Tags:       row.Tags,
		},
	}
}
