package orders

import pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"

var (
	ErrAlreadyPaid      = pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	ErrNotCancellable   = pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled in its current status")
	ErrRefundNotAllowed = pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded")
	ErrOrderNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	ErrEmptyOrder       = pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	ErrDateNotFuture    = pkgerrors.New(pkgerrors.CodeValidation, "installation date must be in the future")
)

func invalidTransition(from, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot "+action+" an order that is "+from).
		WithDetails(map[string]any{"status": from})
}
