package allocation

import (
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
)

func invalidQuantity() error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than 0")
}

// notFoundOr maps a missing row to NOT_FOUND and anything else to a store failure.
func notFoundOr(err error, notFoundMsg, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	}
	return storeFailure(err, action)
}

// storeFailure keeps typed errors and wraps raw ones as DEPENDENCY_ERROR. The
// driver error stays in the chain so serialization failures are still retried.
func storeFailure(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsForeignKeyViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "referenced record not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

// classify turns whatever escaped the transaction into a typed error.
// Exhausted serialization retries surface as a retryable DEPENDENCY_ERROR.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if db.IsRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transaction conflict; retry the request")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store unavailable")
}
