package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/internal/inventory"
	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox/payloads"
)

const (
	opAddPart        = "add_part"
	opUpdatePart     = "update_part"
	opRemovePart     = "remove_part"
	opDeleteProduct  = "delete_product"
	opApplyTemplate  = "apply_template"
	opCreateProduct  = "create_product"
	opChangeStatus   = "change_project_status"
	outcomeSucceeded = "ok"
)

type activityWriter interface {
	Append(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.Activity, error)
	AppendBatch(ctx context.Context, tx *gorm.DB, entries []ledger.Entry) ([]models.Activity, error)
}

type availabilityChecker interface {
	Check(ctx context.Context, tx *gorm.DB, reqs []inventory.Requirement) (inventory.Report, error)
	CheckForUpdate(ctx context.Context, tx *gorm.DB, reqs []inventory.Requirement) (inventory.Report, error)
}

type templateLoader interface {
	FindActiveWithLines(ctx context.Context, id uuid.UUID) (*models.ProductTemplate, error)
}

// Options tunes transaction handling and instrumentation.
type Options struct {
	Retry                 db.RetryPolicy
	StrictTemplateLocking bool
	Metrics               *metrics.AllocationMetrics
	Logger                *logger.Logger
}

// Engine runs every multi-step inventory mutation. Each operation commits the
// product links, the ledger rows and the derived balances together or not at all.
type Engine struct {
	dbClient  db.TxRunner
	repo      *Repository
	checker   availabilityChecker
	writer    activityWriter
	emitter   outbox.Emitter
	templates templateLoader
	opts      Options
}

// NewEngine wires the allocation engine.
func NewEngine(dbClient db.TxRunner, repo *Repository, checker availabilityChecker, writer activityWriter, emitter outbox.Emitter, templates templateLoader, opts Options) (*Engine, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if checker == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template loader required")
	}
	return &Engine{
		dbClient:  dbClient,
		repo:      repo,
		checker:   checker,
		writer:    writer,
		emitter:   emitter,
		templates: templates,
		opts:      opts,
	}, nil
}

// AddPart allocates quantity units of a part to a product.
func (e *Engine) AddPart(ctx context.Context, productID, partID uuid.UUID, quantity int, actor string) (*ProductPartDTO, error) {
	ctx = e.logCtx(ctx, productID, partID)
	if quantity <= 0 {
		return nil, e.reject(ctx, opAddPart, invalidQuantity())
	}

	var result ProductPartDTO
	err := e.run(ctx, opAddPart, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		part, err := repo.FindPart(ctx, partID)
		if err != nil {
			return notFoundOr(err, "part not found", "load part")
		}
		if !part.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}

		if err := e.requireStock(ctx, tx, *part, quantity); err != nil {
			return err
		}

		if _, err := repo.FindProductPart(ctx, productID, partID); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateAllocation, "part is already in this product; update the quantity instead").
				WithDetails(map[string]any{"productId": productID, "partId": partID})
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeFailure(err, "load product part")
		}

		link := models.ProductPart{ProductID: productID, PartID: partID, Quantity: quantity}
		if err := repo.InsertProductParts(ctx, []models.ProductPart{link}); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateAllocation, err, "part is already in this product; update the quantity instead")
			}
			return storeFailure(err, "insert product part")
		}

		if _, err := e.writer.Append(ctx, tx, ledger.Entry{
			EventType:    enums.ActivityProjectAllocation,
			PartID:       &partID,
			Qty:          quantity,
			ActorName:    actor,
			ProjectID:    &product.ProjectID,
			ProductID:    &productID,
			Notes:        strPtr("Manually added to product"),
			Tags:         []string{"manual-allocation"},
			CategoryName: categoryName(part),
		}); err != nil {
			return storeFailure(err, "append allocation")
		}

		result = ProductPartDTO{ProductID: productID, PartID: partID, PartName: part.Name, SKU: part.SKU, Quantity: quantity}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdatePart sets a new allocated quantity. Only an increase is checked
// against stock; a decrease returns the difference.
func (e *Engine) UpdatePart(ctx context.Context, productID, partID uuid.UUID, newQuantity int, actor string) (*ProductPartDTO, error) {
	ctx = e.logCtx(ctx, productID, partID)
	if newQuantity <= 0 {
		return nil, e.reject(ctx, opUpdatePart, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than 0; remove the part instead"))
	}

	var result ProductPartDTO
	err := e.run(ctx, opUpdatePart, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		link, err := repo.FindProductPart(ctx, productID, partID)
		if err != nil {
			return notFoundOr(err, "part not found in this product", "load product part")
		}
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		part, err := repo.FindPart(ctx, partID)
		if err != nil {
			return notFoundOr(err, "part not found", "load part")
		}

		delta := newQuantity - link.Quantity
		if delta > 0 {
			if err := e.requireStock(ctx, tx, *part, delta); err != nil {
				return err
			}
		}

		if err := repo.UpdateProductPartQuantity(ctx, productID, partID, newQuantity); err != nil {
			return storeFailure(err, "update product part")
		}

		entry := ledger.Entry{
			PartID:       &partID,
			ActorName:    actor,
			ProjectID:    &product.ProjectID,
			ProductID:    &productID,
			CategoryName: categoryName(part),
		}
		switch {
		case delta > 0:
			entry.EventType = enums.ActivityProjectAllocation
			entry.Qty = delta
			entry.Notes = strPtr("Increased quantity in product")
			entry.Tags = []string{"manual-allocation"}
		case delta < 0:
			entry.EventType = enums.ActivityProjectDeallocation
			entry.Qty = -delta
			entry.Notes = strPtr("Decreased quantity in product")
			entry.Tags = []string{"manual-return"}
		}
		if delta != 0 {
			if _, err := e.writer.Append(ctx, tx, entry); err != nil {
				return storeFailure(err, "append quantity change")
			}
		}

		result = ProductPartDTO{ProductID: productID, PartID: partID, PartName: part.Name, SKU: part.SKU, Quantity: newQuantity}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemovePart deletes the link and returns its full quantity to stock.
func (e *Engine) RemovePart(ctx context.Context, productID, partID uuid.UUID, actor string) error {
	ctx = e.logCtx(ctx, productID, partID)
	return e.run(ctx, opRemovePart, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		link, err := repo.FindProductPart(ctx, productID, partID)
		if err != nil {
			return notFoundOr(err, "part not found in this product", "load product part")
		}
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		part, err := repo.FindPart(ctx, partID)
		if err != nil {
			return notFoundOr(err, "part not found", "load part")
		}

		if err := repo.DeleteProductPart(ctx, productID, partID); err != nil {
			return storeFailure(err, "delete product part")
		}
		if _, err := e.writer.Append(ctx, tx, ledger.Entry{
			EventType:    enums.ActivityProjectDeallocation,
			PartID:       &partID,
			Qty:          link.Quantity,
			ActorName:    actor,
			ProjectID:    &product.ProjectID,
			ProductID:    &productID,
			Notes:        strPtr("Manually removed from product"),
			Tags:         []string{"manual-return"},
			CategoryName: categoryName(part),
		}); err != nil {
			return storeFailure(err, "append deallocation")
		}
		return nil
	})
}

// DeleteProduct returns every allocated part to stock, drops the links and
// removes the product.
func (e *Engine) DeleteProduct(ctx context.Context, productID uuid.UUID, actor string) (*DeleteProductResult, error) {
	ctx = e.logCtx(ctx, productID, uuid.Nil)

	var result DeleteProductResult
	err := e.run(ctx, opDeleteProduct, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		links, err := repo.ListProductParts(ctx, productID)
		if err != nil {
			return storeFailure(err, "load product parts")
		}
		var projectName *string
		if project, err := repo.FindActiveProject(ctx, product.ProjectID); err == nil {
			projectName = &project.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeFailure(err, "load project")
		}

		returns := make([]ledger.Entry, 0, len(links))
		returned := make([]ProductPartDTO, 0, len(links))
		eventLines := make([]payloads.PartQuantity, 0, len(links))
		for _, link := range links {
			partID := link.PartID
			returns = append(returns, ledger.Entry{
				EventType:    enums.ActivityReturn,
				PartID:       &partID,
				Qty:          link.Quantity,
				ActorName:    actor,
				Project:      projectName,
				ProjectID:    &product.ProjectID,
				ProductID:    &product.ID,
				Notes:        strPtr(fmt.Sprintf("Deallocated from deleted product: %s", product.Name)),
				Tags:         []string{"product-deleted", "return"},
				CategoryName: categoryName(link.Part),
			})
			returned = append(returned, productPartFromModel(link))
			eventLines = append(eventLines, payloads.PartQuantity{PartID: partID, Quantity: link.Quantity})
		}
		if _, err := e.writer.AppendBatch(ctx, tx, returns); err != nil {
			return storeFailure(err, "append returns")
		}
		if err := repo.DeleteProductParts(ctx, productID); err != nil {
			return storeFailure(err, "delete product parts")
		}
		if _, err := e.writer.Append(ctx, tx, ledger.Entry{
			EventType: enums.ActivityProductDeleted,
			ActorName: actor,
			Project:   projectName,
			ProjectID: &product.ProjectID,
			ProductID: &product.ID,
			Notes:     strPtr(fmt.Sprintf("Product %q deleted", product.Name)),
			Tags:      []string{"product", "deleted"},
		}); err != nil {
			return storeFailure(err, "append product deletion")
		}
		if err := repo.DeleteProduct(ctx, productID); err != nil {
			return storeFailure(err, "delete product")
		}

		if err := e.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductDeleted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         actorRef(actor),
			Data: payloads.ProductDeletedEvent{
				ProductID: product.ID,
				ProjectID: product.ProjectID,
				Name:      product.Name,
				Returned:  eventLines,
			},
		}); err != nil {
			return storeFailure(err, "queue product deleted event")
		}

		result = DeleteProductResult{ProductID: product.ID, Returned: returned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyTemplate creates a product in the project with every template line
// allocated. Availability is checked for all lines before the write
// transaction opens; with StrictTemplateLocking the check is repeated inside
// the transaction under row locks.
func (e *Engine) ApplyTemplate(ctx context.Context, projectID, templateID uuid.UUID, overrideName string, actor string) (*ProductDTO, error) {
	ctx = e.logFields(ctx, map[string]any{"project_id": projectID.String(), "template_id": templateID.String()})
	start := time.Now()

	template, err := e.templates.FindActiveWithLines(ctx, templateID)
	if err != nil {
		return nil, e.finish(ctx, opApplyTemplate, start, notFoundOr(err, "product template not found", "load template"))
	}
	project, err := e.repo.FindActiveProject(ctx, projectID)
	if err != nil {
		return nil, e.finish(ctx, opApplyTemplate, start, notFoundOr(err, "project not found", "load project"))
	}

	if err := requireActiveParts(template); err != nil {
		return nil, e.finish(ctx, opApplyTemplate, start, err)
	}

	reqs := templateRequirements(template)
	report, err := e.checker.Check(ctx, nil, reqs)
	if err != nil {
		return nil, e.finish(ctx, opApplyTemplate, start, storeFailure(err, "check availability"))
	}
	if !report.CanFulfill {
		return nil, e.finish(ctx, opApplyTemplate, start, inventory.ShortageError(report))
	}

	name := strings.TrimSpace(overrideName)
	if name == "" {
		name = template.Name
	}

	var product models.Product
	err = e.withRetry(ctx, func(tx *gorm.DB) error {
		if e.opts.StrictTemplateLocking {
			locked, err := e.checker.CheckForUpdate(ctx, tx, reqs)
			if err != nil {
				return storeFailure(err, "check availability")
			}
			if !locked.CanFulfill {
				return inventory.ShortageError(locked)
			}
		}

		repo := e.repo.WithTx(tx)
		product = models.Product{ID: uuid.New(), ProjectID: project.ID, Name: name}
		if err := repo.CreateProduct(ctx, &product); err != nil {
			return storeFailure(err, "create product")
		}

		links := make([]models.ProductPart, 0, len(template.Lines))
		entries := make([]ledger.Entry, 0, len(template.Lines))
		allocated := make([]payloads.PartQuantity, 0, len(template.Lines))
		notes := fmt.Sprintf("Allocated to %s - %s", project.Name, product.Name)
		for _, line := range template.Lines {
			partID := line.PartID
			links = append(links, models.ProductPart{ProductID: product.ID, PartID: partID, Quantity: line.Quantity})
			entries = append(entries, ledger.Entry{
				EventType:    enums.ActivityProjectAllocation,
				PartID:       &partID,
				Qty:          line.Quantity,
				ActorName:    actor,
				Project:      &project.Name,
				ProjectID:    &project.ID,
				ProductID:    &product.ID,
				Notes:        &notes,
				Tags:         []string{"project-allocation", "template"},
				CategoryName: categoryName(line.Part),
			})
			allocated = append(allocated, payloads.PartQuantity{PartID: partID, Quantity: line.Quantity})
		}
		if err := repo.InsertProductParts(ctx, links); err != nil {
			return storeFailure(err, "insert product parts")
		}
		if _, err := e.writer.AppendBatch(ctx, tx, entries); err != nil {
			return storeFailure(err, "append allocations")
		}

		return e.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTemplateApplied,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         actorRef(actor),
			Data: payloads.TemplateAppliedEvent{
				ProductID:  product.ID,
				ProjectID:  project.ID,
				TemplateID: template.ID,
				Allocated:  allocated,
			},
		})
	})
	if err = e.finish(ctx, opApplyTemplate, start, err); err != nil {
		return nil, err
	}

	out, err := e.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProduct adds an empty product to the project.
func (e *Engine) CreateProduct(ctx context.Context, projectID uuid.UUID, name string, actor string) (*ProductDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}

	var product models.Product
	err := e.run(ctx, opCreateProduct, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		project, err := repo.FindActiveProject(ctx, projectID)
		if err != nil {
			return notFoundOr(err, "project not found", "load project")
		}
		product = models.Product{ID: uuid.New(), ProjectID: project.ID, Name: name}
		if err := repo.CreateProduct(ctx, &product); err != nil {
			return storeFailure(err, "create product")
		}
		_, err = e.writer.Append(ctx, tx, ledger.Entry{
			EventType: enums.ActivityProductCreated,
			ActorName: actor,
			Project:   &project.Name,
			ProjectID: &project.ID,
			ProductID: &product.ID,
			Notes:     strPtr(fmt.Sprintf("Product %q created for project %q", name, project.Name)),
			Tags:      []string{"product", "created"},
		})
		return storeFailure(err, "append product created")
	})
	if err != nil {
		return nil, err
	}
	dto := ProductFromModel(product)
	return &dto, nil
}

// RenameProduct changes product metadata only; the ledger is untouched.
func (e *Engine) RenameProduct(ctx context.Context, productID uuid.UUID, name string) (*ProductDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if err := e.repo.RenameProduct(ctx, productID, name); err != nil {
		return nil, notFoundOr(err, "product not found", "rename product")
	}
	return e.GetProduct(ctx, productID)
}

// GetProduct loads the product with its allocations.
func (e *Engine) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := e.repo.FindProductWithParts(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := ProductFromModel(*product)
	return &dto, nil
}

// ListProjectProducts lists the products of an active project.
func (e *Engine) ListProjectProducts(ctx context.Context, projectID uuid.UUID) ([]ProductDTO, error) {
	if _, err := e.repo.FindActiveProject(ctx, projectID); err != nil {
		return nil, notFoundOr(err, "project not found", "load project")
	}
	products, err := e.repo.ListProductsByProject(ctx, projectID)
	if err != nil {
		return nil, storeFailure(err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for _, product := range products {
		out = append(out, ProductFromModel(product))
	}
	return out, nil
}

// ChangeProjectStatus moves the project to status and records the change in
// the ledger. Dispatch details are only stored for the dispatched status.
func (e *Engine) ChangeProjectStatus(ctx context.Context, projectID uuid.UUID, status enums.ProjectStatus, dispatch *DispatchDetails, actor string) (*ProjectStatusDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid project status %q", status))
	}
	ctx = e.logFields(ctx, map[string]any{"project_id": projectID.String(), "status": string(status)})

	var result ProjectStatusDTO
	err := e.run(ctx, opChangeStatus, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		project, err := repo.FindActiveProject(ctx, projectID)
		if err != nil {
			return notFoundOr(err, "project not found", "load project")
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": status}
		notes := fmt.Sprintf("Project status changed to %q", status)
		switch status {
		case enums.ProjectStatusDispatched:
			updates["dispatched_at"] = now
			if dispatch != nil {
				updates["dispatch_datetime"] = dispatch.DispatchDatetime
				updates["dispatch_from_location"] = dispatch.DispatchFromLocation
				updates["dispatch_to_location"] = dispatch.DispatchToLocation
				updates["receiving_person_name"] = dispatch.ReceivingPersonName
				if dispatch.DispatchToLocation != nil {
					notes += "\nDispatched to: " + *dispatch.DispatchToLocation
				}
			}
		case enums.ProjectStatusCancelled:
			updates["cancelled_at"] = now
		}
		if err := repo.UpdateProject(ctx, project.ID, updates); err != nil {
			return storeFailure(err, "update project status")
		}
		if _, err := e.writer.Append(ctx, tx, ledger.Entry{
			EventType: enums.ActivityProjectStatusChange,
			ActorName: actor,
			Project:   &project.Name,
			ProjectID: &project.ID,
			Notes:     &notes,
			Tags:      []string{"project", "status-change"},
		}); err != nil {
			return storeFailure(err, "append status change")
		}

		updated, err := repo.FindActiveProject(ctx, project.ID)
		if err != nil {
			return storeFailure(err, "reload project")
		}
		result = projectStatusFromModel(*updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// requireStock locks the part's balance and fails with the shortage when
// fewer than quantity units are available.
func (e *Engine) requireStock(ctx context.Context, tx *gorm.DB, part models.Part, quantity int) error {
	report, err := e.checker.CheckForUpdate(ctx, tx, []inventory.Requirement{{
		PartID:   part.ID,
		PartName: part.Name,
		Quantity: quantity,
	}})
	if err != nil {
		return storeFailure(err, "check availability")
	}
	if !report.CanFulfill {
		return inventory.ShortageError(report)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	return e.finish(ctx, op, start, e.withRetry(ctx, fn))
}

func (e *Engine) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	return db.RetryTx(ctx, e.dbClient, e.opts.Retry, func(tx *gorm.DB) error {
		attempt++
		if attempt > 1 {
			e.opts.Metrics.IncRetry()
		}
		return fn(tx)
	})
}

// finish classifies err, records metrics and logs the outcome.
func (e *Engine) finish(ctx context.Context, op string, start time.Time, err error) error {
	err = classify(err)
	outcome := outcomeSucceeded
	if typed := pkgerrors.As(err); typed != nil {
		outcome = strings.ToLower(string(typed.Code()))
		if typed.Code() == pkgerrors.CodeInsufficientInventory {
			e.opts.Metrics.AddShortages(op, shortageCount(typed))
		}
	}
	e.opts.Metrics.Observe(op, outcome, time.Since(start))

	if logg := e.opts.Logger; logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{"operation": op, "outcome": outcome})
		switch {
		case err == nil:
			logg.Info(logCtx, "allocation committed")
		case pkgerrors.IsCode(err, pkgerrors.CodeDependency):
			logg.Error(logCtx, "allocation failed", err)
		default:
			logg.Warn(logCtx, "allocation rejected")
		}
	}
	return err
}

func (e *Engine) reject(ctx context.Context, op string, err error) error {
	return e.finish(ctx, op, time.Now(), err)
}

func (e *Engine) logCtx(ctx context.Context, productID, partID uuid.UUID) context.Context {
	if e.opts.Logger == nil {
		return ctx
	}
	part := ""
	if partID != uuid.Nil {
		part = partID.String()
	}
	return e.opts.Logger.WithAllocation(ctx, productID.String(), part)
}

func (e *Engine) logFields(ctx context.Context, fields map[string]any) context.Context {
	if e.opts.Logger == nil {
		return ctx
	}
	return e.opts.Logger.WithFields(ctx, fields)
}

func templateRequirements(template *models.ProductTemplate) []inventory.Requirement {
	reqs := make([]inventory.Requirement, 0, len(template.Lines))
	for _, line := range template.Lines {
		req := inventory.Requirement{PartID: line.PartID, Quantity: line.Quantity}
		if line.Part != nil {
			req.PartName = line.Part.Name
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// requireActiveParts fails when a template line points at a part that was
// deactivated after the template was saved.
func requireActiveParts(template *models.ProductTemplate) error {
	var inactive []string
	for _, line := range template.Lines {
		switch {
		case line.Part == nil:
			inactive = append(inactive, line.PartID.String())
		case !line.Part.IsActive:
			inactive = append(inactive, line.Part.Name)
		}
	}
	if len(inactive) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "template references inactive parts: "+strings.Join(inactive, ", "))
}

func shortageCount(err *pkgerrors.Error) int {
	details, ok := err.Details().(map[string]any)
	if !ok {
		return 0
	}
	shortages, ok := details["shortages"].([]inventory.Shortage)
	if !ok {
		return 0
	}
	return len(shortages)
}

func categoryName(part *models.Part) *string {
	if part == nil || part.Category == nil {
		return nil
	}
	name := part.Category.Name
	return &name
}

func actorRef(actor string) *outbox.ActorRef {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = ledger.DefaultActor
	}
	return &outbox.ActorRef{Name: actor}
}

func strPtr(s string) *string {
	return &s
}
