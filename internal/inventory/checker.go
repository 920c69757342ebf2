package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

// Requirement is one (part, quantity) line to check against stock.
type Requirement struct {
	PartID   uuid.UUID
	PartName string
	Quantity int
}

// Shortage describes a line whose required quantity exceeds availability.
type Shortage struct {
	PartID    uuid.UUID `json:"partId"`
	PartName  string    `json:"partName"`
	Needed    int       `json:"needed"`
	Available int       `json:"available"`
}

// Report is the outcome of an availability check. Shortages lists every
// failing line in input order.
type Report struct {
	CanFulfill bool       `json:"canFulfill"`
	Shortages  []Shortage `json:"shortages"`
}

// Checker compares requirements against current balances.
type Checker struct {
	balances *BalanceRepository
}

// NewChecker builds a checker reading through the provided repository.
func NewChecker(balances *BalanceRepository) *Checker {
	return &Checker{balances: balances}
}

// Check reads balances without locking and reports every shortage.
func (c *Checker) Check(ctx context.Context, tx *gorm.DB, reqs []Requirement) (Report, error) {
	return c.check(ctx, tx, reqs, false)
}

// CheckForUpdate is Check with row locks held on every balance involved.
func (c *Checker) CheckForUpdate(ctx context.Context, tx *gorm.DB, reqs []Requirement) (Report, error) {
	return c.check(ctx, tx, reqs, true)
}

func (c *Checker) check(ctx context.Context, tx *gorm.DB, reqs []Requirement, lock bool) (Report, error) {
	report := Report{CanFulfill: true, Shortages: []Shortage{}}
	if len(reqs) == 0 {
		return report, nil
	}

	repo := c.balances.WithTx(tx)
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.PartID)
	}
	balances, err := repo.ListByPartIDs(ctx, ids, lock)
	if err != nil {
		return Report{}, err
	}

	var missingNames []uuid.UUID
	for _, req := range reqs {
		available := 0
		if balance, ok := balances[req.PartID]; ok {
			available = balance.Available
		}
		if available >= req.Quantity {
			continue
		}
		report.Shortages = append(report.Shortages, Shortage{
			PartID:    req.PartID,
			PartName:  req.PartName,
			Needed:    req.Quantity,
			Available: available,
		})
		if req.PartName == "" {
			missingNames = append(missingNames, req.PartID)
		}
	}

	if len(missingNames) > 0 {
		names, err := repo.PartNames(ctx, missingNames)
		if err != nil {
			return Report{}, err
		}
		for i := range report.Shortages {
			if report.Shortages[i].PartName == "" {
				report.Shortages[i].PartName = names[report.Shortages[i].PartID]
			}
		}
	}

	report.CanFulfill = len(report.Shortages) == 0
	return report, nil
}

// ShortageError wraps a failed report as an INSUFFICIENT_INVENTORY error that
// carries the full shortage list.
func ShortageError(report Report) *pkgerrors.Error {
	msg := "insufficient inventory"
	if len(report.Shortages) == 1 {
		s := report.Shortages[0]
		msg = fmt.Sprintf("insufficient inventory for part %s: needed %d, available %d", s.PartName, s.Needed, s.Available)
	} else if len(report.Shortages) > 1 {
		msg = fmt.Sprintf("insufficient inventory for %d parts", len(report.Shortages))
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, msg).
		WithDetails(map[string]any{"shortages": report.Shortages})
}
