package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

type fixture struct {
	client  *db.Client
	repo    *ledger.Repository
	writer  *ledger.Writer
	service ledger.Service
	part    models.Part
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.OpenClient(t)
	conn := client.DB()

	repo := ledger.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	writer, err := ledger.NewWriter(repo, inventory.NewProjector(), emitter, nil)
	require.NoError(t, err)
	checker := inventory.NewChecker(inventory.NewBalanceRepository(conn))
	svc, err := ledger.NewService(repo, writer, checker, client)
	require.NoError(t, err)

	category := dbtest.SeedCategory(t, conn, "Plumbing")
	part := dbtest.SeedPart(t, conn, category.ID, "Valve")
	return fixture{client: client, repo: repo, writer: writer, service: svc, part: part}
}

func (f fixture) available(t *testing.T) int {
	t.Helper()
	balances, err := inventory.NewBalanceRepository(f.client.DB()).
		ListByPartIDs(context.Background(), []uuid.UUID{f.part.ID}, false)
	require.NoError(t, err)
	return balances[f.part.ID].Available
}

func TestNewWriterRequiresDependencies(t *testing.T) {
	_, err := ledger.NewWriter(nil, inventory.NewProjector(), nil, nil)
	require.Error(t, err)
}

func TestAppendBatchUpdatesBalanceAndQueuesEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	partID := f.part.ID

	var rows []models.Activity
	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		rows, err = f.writer.AppendBatch(ctx, tx, []ledger.Entry{
			{EventType: enums.ActivityReceive, PartID: &partID, Qty: 12, Tags: []string{"restock"}},
			{EventType: enums.ActivityIssue, PartID: &partID, Qty: 5, ActorName: "Dana"},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledger.DefaultActor, rows[0].ActorName)
	assert.Equal(t, "Dana", rows[1].ActorName)
	assert.Equal(t, 7, f.available(t))

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventActivityRecorded).
		Count(&events).Error)
	assert.EqualValues(t, 2, events)

	stored, err := f.repo.FindByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"restock"}, []string(stored.Tags))
	require.NotNil(t, stored.Part)
	assert.Equal(t, "Valve", stored.Part.Name)
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	partID := f.part.ID

	cases := []struct {
		name  string
		entry ledger.Entry
		code  pkgerrors.Code
	}{
		{name: "unknown type", entry: ledger.Entry{EventType: "restock", PartID: &partID, Qty: 1}, code: pkgerrors.CodeValidation},
		{name: "negative qty", entry: ledger.Entry{EventType: enums.ActivityReceive, PartID: &partID, Qty: -1}, code: pkgerrors.CodeInvalidQuantity},
		{name: "inventory event without part", entry: ledger.Entry{EventType: enums.ActivityIssue, Qty: 1}, code: pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
				_, err := f.writer.Append(ctx, tx, tc.entry)
				return err
			})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Activity{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestActivitiesCannotBeUpdatedOrDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	partID := f.part.ID

	var row *models.Activity
	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, err = f.writer.Append(ctx, tx, ledger.Entry{EventType: enums.ActivityReceive, PartID: &partID, Qty: 2})
		return err
	}))

	row.Qty = 200
	assert.ErrorIs(t, f.client.DB().Save(row).Error, models.ErrActivityImmutable)
	assert.ErrorIs(t, f.client.DB().Delete(row).Error, models.ErrActivityImmutable)
}

func TestRecordLooksUpCategoryName(t *testing.T) {
	f := newFixture(t)
	partID := f.part.ID

	dto, err := f.service.Record(context.Background(), ledger.RecordActivityInput{
		EventType: enums.ActivityReceive,
		PartID:    &partID,
		Qty:       4,
		ActorName: "Sam",
	})
	require.NoError(t, err)
	require.NotNil(t, dto.CategoryName)
	assert.Equal(t, "Plumbing", *dto.CategoryName)
	assert.Equal(t, 4, f.available(t))
}

func TestRecordIssueCannotOverdraw(t *testing.T) {
	f := newFixture(t)
	partID := f.part.ID
	ctx := context.Background()

	_, err := f.service.Record(ctx, ledger.RecordActivityInput{EventType: enums.ActivityReceive, PartID: &partID, Qty: 2})
	require.NoError(t, err)

	_, err = f.service.Record(ctx, ledger.RecordActivityInput{EventType: enums.ActivityIssue, PartID: &partID, Qty: 3})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientInventory))
	assert.Equal(t, 2, f.available(t))
}

func TestRecordUnknownPart(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()
	_, err := f.service.Record(context.Background(), ledger.RecordActivityInput{EventType: enums.ActivityReceive, PartID: &missing, Qty: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	partID := f.part.ID
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		dto, err := f.service.Record(ctx, ledger.RecordActivityInput{EventType: enums.ActivityReceive, PartID: &partID, Qty: i + 1})
		require.NoError(t, err)
		ids = append(ids, dto.ID)
	}

	result, err := f.service.List(ctx, ledger.ListActivitiesInput{Page: pagination.PageParams{Page: 1, Limit: 2}})
	require.NoError(t, err)
	require.NotNil(t, result.Pagination)
	assert.EqualValues(t, 5, result.Pagination.TotalItems)
	assert.Equal(t, 3, result.Pagination.TotalPages)
	require.Len(t, result.Data, 2)

	all, err := f.service.List(ctx, ledger.ListActivitiesInput{Page: pagination.PageParams{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, all.Data, 5)
	for i := 1; i < len(all.Data); i++ {
		assert.False(t, all.Data[i].CreatedAt.After(all.Data[i-1].CreatedAt), "rows must be newest first")
	}

	filtered, err := f.service.List(ctx, ledger.ListActivitiesInput{
		Filter: ledger.ListFilter{PartID: &partID},
		Page:   pagination.PageParams{Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, filtered.Data, 5)
}

func TestListByCursorWalksEveryRow(t *testing.T) {
	f := newFixture(t)
	partID := f.part.ID
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Record(ctx, ledger.RecordActivityInput{EventType: enums.ActivityReceive, PartID: &partID, Qty: 1})
		require.NoError(t, err)
	}

	first, err := f.service.List(ctx, ledger.ListActivitiesInput{Page: pagination.PageParams{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Data, 2)

	last := first.Data[1]
	cursor := pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	next, err := f.service.List(ctx, ledger.ListActivitiesInput{Page: pagination.PageParams{Limit: 2}, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, next.Data, 1)
	assert.Empty(t, next.NextCursor)

	seen := map[uuid.UUID]bool{first.Data[0].ID: true, first.Data[1].ID: true}
	assert.False(t, seen[next.Data[0].ID])
}

func TestListRejectsBadCursor(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.List(context.Background(), ledger.ListActivitiesInput{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
