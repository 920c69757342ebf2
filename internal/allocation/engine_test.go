package allocation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/internal/allocation"
	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/internal/templates"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
)

type fixture struct {
	client   *db.Client
	conn     *gorm.DB
	engine   *allocation.Engine
	registry *prometheus.Registry
	project  models.Project
	product  models.Product
	p1       models.Part
	p2       models.Part
}

func newFixture(t *testing.T, strict bool) fixture {
	t.Helper()
	client := dbtest.OpenClient(t)
	conn := client.DB()

	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	writer, err := ledger.NewWriter(ledger.NewRepository(conn), inventory.NewProjector(), emitter, nil)
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	engine, err := allocation.NewEngine(
		client,
		allocation.NewRepository(conn),
		inventory.NewChecker(inventory.NewBalanceRepository(conn)),
		writer,
		emitter,
		templates.NewRepository(conn),
		allocation.Options{
			Retry:                 db.RetryPolicy{MaxRetries: 2},
			StrictTemplateLocking: strict,
			Metrics:               metrics.NewAllocationMetrics(registry),
		},
	)
	require.NoError(t, err)

	category := dbtest.SeedCategory(t, conn, "Framing")
	project := dbtest.SeedProject(t, conn, "Warehouse fit-out")
	return fixture{
		client:   client,
		conn:     conn,
		engine:   engine,
		registry: registry,
		project:  project,
		product:  dbtest.SeedProduct(t, conn, project.ID, "Shelving bay"),
		p1:       dbtest.SeedPart(t, conn, category.ID, "Upright"),
		p2:       dbtest.SeedPart(t, conn, category.ID, "Beam"),
	}
}

func (f fixture) receive(t *testing.T, partID uuid.UUID, qty int) {
	t.Helper()
	row := models.Activity{EventType: enums.ActivityReceive, PartID: &partID, Qty: qty, ActorName: ledger.DefaultActor}
	require.NoError(t, f.conn.Omit(clause.Associations).Create(&row).Error)
	require.NoError(t, inventory.NewProjector().Recompute(context.Background(), f.conn, partID))
}

func (f fixture) available(t *testing.T, partID uuid.UUID) int {
	t.Helper()
	balances, err := inventory.NewBalanceRepository(f.conn).
		ListByPartIDs(context.Background(), []uuid.UUID{partID}, false)
	require.NoError(t, err)
	return balances[partID].Available
}

func (f fixture) activities(t *testing.T, productID uuid.UUID) []models.Activity {
	t.Helper()
	var rows []models.Activity
	require.NoError(t, f.conn.Where("product_id = ?", productID).Find(&rows).Error)
	return rows
}

func (f fixture) link(t *testing.T, productID, partID uuid.UUID) (models.ProductPart, bool) {
	t.Helper()
	var rows []models.ProductPart
	require.NoError(t, f.conn.Where("product_id = ? AND part_id = ?", productID, partID).Find(&rows).Error)
	if len(rows) == 0 {
		return models.ProductPart{}, false
	}
	return rows[0], true
}

// assertLedgerMatchesBalances replays the ledger for each part and compares it
// with the stored balance row.
func (f fixture) assertLedgerMatchesBalances(t *testing.T, partIDs ...uuid.UUID) {
	t.Helper()
	replays, err := inventory.NewProjector().Replay(context.Background(), f.conn, partIDs...)
	require.NoError(t, err)
	for _, replay := range replays {
		assert.Equal(t, replay.Available(), f.available(t, replay.PartID), "part %s", replay.PartID)
	}
}

func (f fixture) seedTemplate(t *testing.T, lines map[uuid.UUID]int) models.ProductTemplate {
	t.Helper()
	template := models.ProductTemplate{Name: "Standard bay", IsActive: true}
	require.NoError(t, f.conn.Omit(clause.Associations).Create(&template).Error)
	for partID, qty := range lines {
		line := models.TemplatePart{TemplateID: template.ID, PartID: partID, Quantity: qty}
		require.NoError(t, f.conn.Omit(clause.Associations).Create(&line).Error)
	}
	return template
}

func shortagesOf(t *testing.T, err error) []inventory.Shortage {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientInventory, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	shortages, ok := details["shortages"].([]inventory.Shortage)
	require.True(t, ok)
	return shortages
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := allocation.NewEngine(nil, nil, nil, nil, nil, nil, allocation.Options{})
	require.Error(t, err)
}

func TestAddPartAllocatesWhenStockSuffices(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 10)

	line, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 10, "Dana")
	require.NoError(t, err)
	assert.Equal(t, 10, line.Quantity)
	assert.Equal(t, "Upright", line.PartName)

	assert.Equal(t, 0, f.available(t, f.p1.ID))
	link, ok := f.link(t, f.product.ID, f.p1.ID)
	require.True(t, ok)
	assert.Equal(t, 10, link.Quantity)

	rows := f.activities(t, f.product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ActivityProjectAllocation, rows[0].EventType)
	assert.Equal(t, 10, rows[0].Qty)
	assert.Equal(t, "Dana", rows[0].ActorName)
	require.NotNil(t, rows[0].CategoryName)
	assert.Equal(t, "Framing", *rows[0].CategoryName)
	assert.Equal(t, []string{"manual-allocation"}, []string(rows[0].Tags))
	f.assertLedgerMatchesBalances(t, f.p1.ID)
}

func TestAddPartShortageLeavesNoTrace(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 3)

	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 5, "")
	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assert.Equal(t, inventory.Shortage{PartID: f.p1.ID, PartName: "Upright", Needed: 5, Available: 3}, shortages[0])

	assert.Equal(t, 3, f.available(t, f.p1.ID))
	_, ok := f.link(t, f.product.ID, f.p1.ID)
	assert.False(t, ok)
	assert.Empty(t, f.activities(t, f.product.ID))
}

func TestAddPartRejections(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 10)

	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 0, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))

	_, err = f.engine.AddPart(ctx, uuid.New(), f.p1.ID, 1, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.engine.AddPart(ctx, f.product.ID, uuid.New(), 1, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 2, "")
	require.NoError(t, err)
	_, err = f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 2, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateAllocation))
	assert.Equal(t, 8, f.available(t, f.p1.ID))
	assert.Len(t, f.activities(t, f.product.ID), 1)
}

func TestUpdatePartAppliesDelta(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 10)
	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 4, "")
	require.NoError(t, err)

	// increase beyond stock: 4 -> 11 needs 7, only 6 left
	_, err = f.engine.UpdatePart(ctx, f.product.ID, f.p1.ID, 11, "")
	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assert.Equal(t, 7, shortages[0].Needed)
	assert.Equal(t, 6, shortages[0].Available)
	link, _ := f.link(t, f.product.ID, f.p1.ID)
	assert.Equal(t, 4, link.Quantity)

	_, err = f.engine.UpdatePart(ctx, f.product.ID, f.p1.ID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, f.p1.ID))

	// a decrease is never checked against stock
	_, err = f.engine.UpdatePart(ctx, f.product.ID, f.p1.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 7, f.available(t, f.p1.ID))

	// no-op keeps the ledger unchanged
	_, err = f.engine.UpdatePart(ctx, f.product.ID, f.p1.ID, 3, "")
	require.NoError(t, err)

	rows := f.activities(t, f.product.ID)
	require.Len(t, rows, 3)
	qtys := map[enums.ActivityEventType][]int{}
	for _, row := range rows {
		qtys[row.EventType] = append(qtys[row.EventType], row.Qty)
	}
	assert.ElementsMatch(t, []int{4, 6}, qtys[enums.ActivityProjectAllocation])
	assert.Equal(t, []int{7}, qtys[enums.ActivityProjectDeallocation])
	f.assertLedgerMatchesBalances(t, f.p1.ID)
}

func TestUpdatePartRejections(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.engine.UpdatePart(ctx, f.product.ID, f.p1.ID, 0, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))

	_, err = f.engine.UpdatePart(ctx, f.product.ID, f.p1.ID, 2, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemovePartReturnsAllocatedQuantity(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 9)
	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 6, "")
	require.NoError(t, err)

	require.NoError(t, f.engine.RemovePart(ctx, f.product.ID, f.p1.ID, ""))
	assert.Equal(t, 9, f.available(t, f.p1.ID))
	_, ok := f.link(t, f.product.ID, f.p1.ID)
	assert.False(t, ok)

	var returned []models.Activity
	require.NoError(t, f.conn.
		Where("product_id = ? AND event_type = ?", f.product.ID, enums.ActivityProjectDeallocation).
		Find(&returned).Error)
	require.Len(t, returned, 1)
	assert.Equal(t, 6, returned[0].Qty)

	err = f.engine.RemovePart(ctx, f.product.ID, f.p1.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteProductReturnsEveryLink(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 4)
	f.receive(t, f.p2.ID, 5)
	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 4, "")
	require.NoError(t, err)
	_, err = f.engine.AddPart(ctx, f.product.ID, f.p2.ID, 2, "")
	require.NoError(t, err)

	result, err := f.engine.DeleteProduct(ctx, f.product.ID, "Dana")
	require.NoError(t, err)
	assert.Len(t, result.Returned, 2)

	assert.Equal(t, 4, f.available(t, f.p1.ID))
	assert.Equal(t, 5, f.available(t, f.p2.ID))

	var returns []models.Activity
	require.NoError(t, f.conn.
		Where("product_id = ? AND event_type = ?", f.product.ID, enums.ActivityReturn).
		Find(&returns).Error)
	require.Len(t, returns, 2)
	got := map[uuid.UUID]int{}
	for _, row := range returns {
		got[*row.PartID] = row.Qty
		assert.Equal(t, []string{"product-deleted", "return"}, []string(row.Tags))
	}
	assert.Equal(t, map[uuid.UUID]int{f.p1.ID: 4, f.p2.ID: 2}, got)

	var deleted int64
	require.NoError(t, f.conn.Model(&models.Activity{}).
		Where("product_id = ? AND event_type = ?", f.product.ID, enums.ActivityProductDeleted).
		Count(&deleted).Error)
	assert.EqualValues(t, 1, deleted)

	var products, links int64
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", f.product.ID).Count(&products).Error)
	require.NoError(t, f.conn.Model(&models.ProductPart{}).Where("product_id = ?", f.product.ID).Count(&links).Error)
	assert.Zero(t, products)
	assert.Zero(t, links)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventProductDeleted, f.product.ID).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
	f.assertLedgerMatchesBalances(t, f.p1.ID, f.p2.ID)

	_, err = f.engine.DeleteProduct(ctx, f.product.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyTemplateAllocatesEveryLine(t *testing.T) {
	for _, strict := range []bool{false, true} {
		f := newFixture(t, strict)
		ctx := context.Background()
		f.receive(t, f.p1.ID, 10)
		f.receive(t, f.p2.ID, 10)
		template := f.seedTemplate(t, map[uuid.UUID]int{f.p1.ID: 4, f.p2.ID: 6})

		product, err := f.engine.ApplyTemplate(ctx, f.project.ID, template.ID, "", "")
		require.NoError(t, err, "strict=%v", strict)
		assert.Equal(t, "Standard bay", product.Name)
		assert.Len(t, product.Parts, 2)
		assert.Equal(t, 6, f.available(t, f.p1.ID))
		assert.Equal(t, 4, f.available(t, f.p2.ID))

		rows := f.activities(t, product.ID)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, enums.ActivityProjectAllocation, row.EventType)
			assert.Equal(t, []string{"project-allocation", "template"}, []string(row.Tags))
		}

		var events int64
		require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
			Where("event_type = ?", enums.EventTemplateApplied).
			Count(&events).Error)
		assert.EqualValues(t, 1, events)
		f.assertLedgerMatchesBalances(t, f.p1.ID, f.p2.ID)
	}
}

func TestApplyTemplateIsAllOrNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 3)
	f.receive(t, f.p2.ID, 10)
	template := f.seedTemplate(t, map[uuid.UUID]int{f.p1.ID: 5, f.p2.ID: 2})

	_, err := f.engine.ApplyTemplate(ctx, f.project.ID, template.ID, "Override", "")
	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assert.Equal(t, inventory.Shortage{PartID: f.p1.ID, PartName: "Upright", Needed: 5, Available: 3}, shortages[0])

	var products int64
	require.NoError(t, f.conn.Model(&models.Product{}).Where("name = ?", "Override").Count(&products).Error)
	assert.Zero(t, products)
	assert.Equal(t, 3, f.available(t, f.p1.ID))
	assert.Equal(t, 10, f.available(t, f.p2.ID))

	// both lines short: the report lists both
	template = f.seedTemplate(t, map[uuid.UUID]int{f.p1.ID: 4, f.p2.ID: 11})
	_, err = f.engine.ApplyTemplate(ctx, f.project.ID, template.ID, "", "")
	assert.Len(t, shortagesOf(t, err), 2)

	_, err = f.engine.ApplyTemplate(ctx, f.project.ID, uuid.New(), "", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestChangeProjectStatusRecordsDispatch(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	to := "Site B"
	receiver := "Jordan"

	status, err := f.engine.ChangeProjectStatus(ctx, f.project.ID, enums.ProjectStatusDispatched, &allocation.DispatchDetails{
		DispatchToLocation:  &to,
		ReceivingPersonName: &receiver,
	}, "Dana")
	require.NoError(t, err)
	assert.Equal(t, enums.ProjectStatusDispatched, status.Status)
	assert.NotNil(t, status.DispatchedAt)
	require.NotNil(t, status.DispatchToLocation)
	assert.Equal(t, "Site B", *status.DispatchToLocation)

	var rows []models.Activity
	require.NoError(t, f.conn.Where("project_id = ? AND event_type = ?", f.project.ID, enums.ActivityProjectStatusChange).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Notes)
	assert.Contains(t, *rows[0].Notes, "Dispatched to: Site B")

	_, err = f.engine.ChangeProjectStatus(ctx, f.project.ID, enums.ProjectStatus("archived"), nil, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateProductAppendsAudit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	product, err := f.engine.CreateProduct(ctx, f.project.ID, "Mezzanine", "")
	require.NoError(t, err)
	rows := f.activities(t, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ActivityProductCreated, rows[0].EventType)
	assert.Equal(t, ledger.DefaultActor, rows[0].ActorName)

	_, err = f.engine.CreateProduct(ctx, uuid.New(), "Orphan", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := f.engine.ListProjectProducts(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEngineCountsOutcomes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 1)

	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 2, "")
	require.Error(t, err)

	families, err := f.registry.Gather()
	require.NoError(t, err)
	var rejected, shortageLines float64
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch family.GetName() {
			case "allocation_operations_total":
				labels := map[string]string{}
				for _, pair := range metric.GetLabel() {
					labels[pair.GetName()] = pair.GetValue()
				}
				if labels["operation"] == "add_part" && labels["outcome"] == "insufficient_inventory" {
					rejected = metric.GetCounter().GetValue()
				}
			case "allocation_shortage_lines_total":
				shortageLines += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), rejected)
	assert.Equal(t, float64(1), shortageLines)
}

func TestApplyTemplateRejectsInactiveParts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 10)
	f.receive(t, f.p2.ID, 10)
	template := f.seedTemplate(t, map[uuid.UUID]int{f.p1.ID: 3, f.p2.ID: 2})
	require.NoError(t, f.conn.Model(&models.Part{}).Where("id = ?", f.p1.ID).Update("is_active", false).Error)

	_, err := f.engine.ApplyTemplate(ctx, f.project.ID, template.ID, "Retired line", "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Contains(t, pkgerrors.As(err).Message(), "Upright")

	var products int64
	require.NoError(t, f.conn.Model(&models.Product{}).Where("name = ?", "Retired line").Count(&products).Error)
	assert.Zero(t, products)
	assert.Equal(t, 10, f.available(t, f.p1.ID))
	assert.Equal(t, 10, f.available(t, f.p2.ID))

	_, err = f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 1, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemovePartRecordsCategoryName(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.receive(t, f.p1.ID, 2)
	_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 2, "")
	require.NoError(t, err)

	require.NoError(t, f.engine.RemovePart(ctx, f.product.ID, f.p1.ID, ""))

	for _, row := range f.activities(t, f.product.ID) {
		require.NotNil(t, row.CategoryName, "%s", row.EventType)
		assert.Equal(t, "Framing", *row.CategoryName)
	}
}

// failingWriter delegates to the real ledger writer and reports a store
// failure once the configured call has written its rows.
type failingWriter struct {
	next   *ledger.Writer
	failAt int
	calls  int
}

func (w *failingWriter) Append(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.Activity, error) {
	rows, err := w.AppendBatch(ctx, tx, []ledger.Entry{entry})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (w *failingWriter) AppendBatch(ctx context.Context, tx *gorm.DB, entries []ledger.Entry) ([]models.Activity, error) {
	w.calls++
	rows, err := w.next.AppendBatch(ctx, tx, entries)
	if err != nil {
		return nil, err
	}
	if w.calls == w.failAt {
		return nil, errors.New("connection reset by peer")
	}
	return rows, nil
}

func (f fixture) engineFailingAt(t *testing.T, failAt int) *allocation.Engine {
	t.Helper()
	emitter := outbox.NewService(outbox.NewRepository(f.conn), nil)
	writer, err := ledger.NewWriter(ledger.NewRepository(f.conn), inventory.NewProjector(), emitter, nil)
	require.NoError(t, err)
	engine, err := allocation.NewEngine(
		f.client,
		allocation.NewRepository(f.conn),
		inventory.NewChecker(inventory.NewBalanceRepository(f.conn)),
		&failingWriter{next: writer, failAt: failAt},
		emitter,
		templates.NewRepository(f.conn),
		allocation.Options{Retry: db.RetryPolicy{MaxRetries: 2}},
	)
	require.NoError(t, err)
	return engine
}

func (f fixture) countRows(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestStoreFailureRollsBackEveryWrite(t *testing.T) {
	t.Run("add part", func(t *testing.T) {
		f := newFixture(t, false)
		ctx := context.Background()
		f.receive(t, f.p1.ID, 4)
		events := f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventActivityRecorded)

		_, err := f.engineFailingAt(t, 1).AddPart(ctx, f.product.ID, f.p1.ID, 3, "")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

		_, linked := f.link(t, f.product.ID, f.p1.ID)
		assert.False(t, linked)
		assert.Empty(t, f.activities(t, f.product.ID))
		assert.Equal(t, 4, f.available(t, f.p1.ID))
		assert.Equal(t, events, f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventActivityRecorded))
		f.assertLedgerMatchesBalances(t, f.p1.ID)
	})

	t.Run("delete product", func(t *testing.T) {
		f := newFixture(t, false)
		ctx := context.Background()
		f.receive(t, f.p1.ID, 4)
		f.receive(t, f.p2.ID, 5)
		_, err := f.engine.AddPart(ctx, f.product.ID, f.p1.ID, 4, "")
		require.NoError(t, err)
		_, err = f.engine.AddPart(ctx, f.product.ID, f.p2.ID, 2, "")
		require.NoError(t, err)

		// the returns batch commits to the tx; the product-deleted entry fails
		_, err = f.engineFailingAt(t, 2).DeleteProduct(ctx, f.product.ID, "")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

		assert.EqualValues(t, 1, f.countRows(t, &models.Product{}, "id = ?", f.product.ID))
		assert.EqualValues(t, 2, f.countRows(t, &models.ProductPart{}, "product_id = ?", f.product.ID))
		assert.Zero(t, f.countRows(t, &models.Activity{}, "product_id = ? AND event_type = ?", f.product.ID, enums.ActivityReturn))
		assert.Zero(t, f.available(t, f.p1.ID))
		assert.Equal(t, 3, f.available(t, f.p2.ID))
		f.assertLedgerMatchesBalances(t, f.p1.ID, f.p2.ID)
	})

	t.Run("apply template", func(t *testing.T) {
		f := newFixture(t, false)
		ctx := context.Background()
		f.receive(t, f.p1.ID, 6)
		f.receive(t, f.p2.ID, 6)
		template := f.seedTemplate(t, map[uuid.UUID]int{f.p1.ID: 2, f.p2.ID: 3})

		_, err := f.engineFailingAt(t, 1).ApplyTemplate(ctx, f.project.ID, template.ID, "Half built", "")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

		assert.Zero(t, f.countRows(t, &models.Product{}, "name = ?", "Half built"))
		assert.Zero(t, f.countRows(t, &models.ProductPart{}, "part_id IN ?", []uuid.UUID{f.p1.ID, f.p2.ID}))
		assert.Equal(t, 6, f.available(t, f.p1.ID))
		assert.Equal(t, 6, f.available(t, f.p2.ID))
		f.assertLedgerMatchesBalances(t, f.p1.ID, f.p2.ID)
	})
}
