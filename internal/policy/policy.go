// Package policy decides whether an actor may perform an action on a resource.
package policy

import (
	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}

type Action string

const (
	ActionManageOrders     Action = "orders.manage"
	ActionManageInvoices   Action = "invoices.manage"
	ActionManageClaims     Action = "claims.manage"
	ActionManageCatalog    Action = "catalog.manage"
	ActionManageSettings   Action = "settings.manage"
	ActionManageInstalment Action = "installments.manage"

	ActionViewOrder       Action = "orders.view"
	ActionCancelOrder     Action = "orders.cancel"
	ActionDownloadInvoice Action = "invoices.download"
	ActionViewWarranty    Action = "warranties.view"
	ActionFileClaim       Action = "claims.file"
	ActionCreatePlan      Action = "installments.create"
)

var adminActions = map[Action]struct{}{
	ActionManageOrders:     {},
	ActionManageInvoices:   {},
	ActionManageClaims:     {},
	ActionManageCatalog:    {},
	ActionManageSettings:   {},
	ActionManageInstalment: {},
}

var selfServiceActions = map[Action]struct{}{
	ActionViewOrder:       {},
	ActionCancelOrder:     {},
	ActionDownloadInvoice: {},
	ActionViewWarranty:    {},
	ActionFileClaim:       {},
	ActionCreatePlan:      {},
}

// ownerOnly lists self-service actions admins may not perform on behalf of a customer.
var ownerOnly = map[Action]struct{}{
	ActionFileClaim: {},
}

var (
	ErrUnauthenticated = pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	ErrAdminRequired   = pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	ErrNotOwner        = pkgerrors.New(pkgerrors.CodeForbidden, "resource belongs to another user")
)

// Policy evaluates an action against an actor and an optional resource owner.
type Policy interface {
	Authorize(actor Actor, action Action, ownerID *uuid.UUID) error
}

type defaultPolicy struct{}

// Default returns the admin-or-owner policy.
func Default() Policy {
	return defaultPolicy{}
}

func (defaultPolicy) Authorize(actor Actor, action Action, ownerID *uuid.UUID) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if _, ok := adminActions[action]; ok {
		if actor.IsAdmin() {
			return nil
		}
		return ErrAdminRequired
	}
	if _, ok := selfServiceActions[action]; !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown action")
	}

	owned := ownerID != nil && *ownerID == actor.UserID
	if owned {
		return nil
	}
	if _, strict := ownerOnly[action]; !strict && actor.IsAdmin() {
		return nil
	}
	return ErrNotOwner
}
