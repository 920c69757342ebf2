package templates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/internal/templates"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

func receive(t *testing.T, conn *gorm.DB, partID uuid.UUID, qty int) {
	t.Helper()
	row := models.Activity{EventType: enums.ActivityReceive, PartID: &partID, Qty: qty, ActorName: "System"}
	require.NoError(t, conn.Omit(clause.Associations).Create(&row).Error)
	require.NoError(t, inventory.NewProjector().Recompute(context.Background(), conn, partID))
}

func newService(t *testing.T) (templates.Service, *gorm.DB) {
	t.Helper()
	client := dbtest.OpenClient(t)
	conn := client.DB()
	checker := inventory.NewChecker(inventory.NewBalanceRepository(conn))
	svc, err := templates.NewService(templates.NewRepository(conn), checker, client)
	require.NoError(t, err)
	return svc, conn
}

func TestCreateAndReplaceLines(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	category := dbtest.SeedCategory(t, conn, "Hardware")
	bolt := dbtest.SeedPart(t, conn, category.ID, "Bolt")
	nut := dbtest.SeedPart(t, conn, category.ID, "Nut")

	created, err := svc.Create(ctx, templates.CreateTemplateInput{
		Name:  "  Bracket kit ",
		Lines: []templates.LineInput{{PartID: bolt.ID, Quantity: 4}, {PartID: nut.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bracket kit", created.Name)
	require.Len(t, created.Lines, 2)

	lines := []templates.LineInput{{PartID: nut.ID, Quantity: 8}}
	updated, err := svc.Update(ctx, created.ID, templates.UpdateTemplateInput{Lines: &lines})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, nut.ID, updated.Lines[0].PartID)
	assert.Equal(t, 8, updated.Lines[0].Quantity)
	assert.Equal(t, "Nut", updated.Lines[0].PartName)
}

func TestCreateValidatesLines(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	category := dbtest.SeedCategory(t, conn, "Hardware")
	bolt := dbtest.SeedPart(t, conn, category.ID, "Bolt")

	_, err := svc.Create(ctx, templates.CreateTemplateInput{Name: "Empty"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, templates.CreateTemplateInput{
		Name:  "Zero",
		Lines: []templates.LineInput{{PartID: bolt.ID, Quantity: 0}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))

	_, err = svc.Create(ctx, templates.CreateTemplateInput{
		Name:  "Twice",
		Lines: []templates.LineInput{{PartID: bolt.ID, Quantity: 1}, {PartID: bolt.ID, Quantity: 2}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, templates.CreateTemplateInput{
		Name:  "Ghost",
		Lines: []templates.LineInput{{PartID: uuid.New(), Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCheckAvailabilityListsEveryShortage(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	category := dbtest.SeedCategory(t, conn, "Hardware")
	p1 := dbtest.SeedPart(t, conn, category.ID, "Panel")
	p2 := dbtest.SeedPart(t, conn, category.ID, "Hinge")
	receive(t, conn, p1.ID, 3)

	created, err := svc.Create(ctx, templates.CreateTemplateInput{
		Name:  "Cabinet",
		Lines: []templates.LineInput{{PartID: p1.ID, Quantity: 5}, {PartID: p2.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	availability, err := svc.CheckAvailability(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, availability.CanCreate)
	assert.Len(t, availability.Shortages, 2)

	receive(t, conn, p1.ID, 2)
	receive(t, conn, p2.ID, 2)
	availability, err = svc.CheckAvailability(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, availability.CanCreate)
	assert.NotNil(t, availability.Shortages)
	assert.Empty(t, availability.Shortages)
}

func TestDeleteDeactivates(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	category := dbtest.SeedCategory(t, conn, "Hardware")
	part := dbtest.SeedPart(t, conn, category.ID, "Washer")

	created, err := svc.Create(ctx, templates.CreateTemplateInput{
		Name:  "Washers",
		Lines: []templates.LineInput{{PartID: part.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, created.ID), pkgerrors.CodeNotFound))
}
