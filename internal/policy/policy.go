// Package policy holds the static role-to-operation permission table.
package policy

import (
	"fmt"

	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/google/uuid"
)

// Operation names a guarded action.
type Operation string

const (
	CarCreate Operation = "car.create"
	CarList   Operation = "car.list"
	CarView   Operation = "car.view"
	CarSearch Operation = "car.search"
	CarPrice  Operation = "car.price"
	CarUpdate Operation = "car.update"
	CarDelete Operation = "car.delete"

	CustomerCreate Operation = "customer.create"
	CustomerList   Operation = "customer.list"
	CustomerView   Operation = "customer.view"
	CustomerUpdate Operation = "customer.update"
	CustomerDelete Operation = "customer.delete"

	ContractCreate Operation = "contract.create"
	ContractCancel Operation = "contract.cancel"
	ContractUpdate Operation = "contract.update"
	ContractList   Operation = "contract.list"
	ContractView   Operation = "contract.view"

	PaymentCreate Operation = "payment.create"
	PaymentList   Operation = "payment.list"
	PaymentView   Operation = "payment.view"
	PaymentUpdate Operation = "payment.update"
	PaymentDelete Operation = "payment.delete"
)

func roles(rs ...enums.Role) map[enums.Role]struct{} {
	set := make(map[enums.Role]struct{}, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

var (
	browseRoles = roles(enums.RoleOwner, enums.RoleCustomer, enums.RoleViewer, enums.RoleGuest)
	editRoles   = roles(enums.RoleOwner, enums.RoleEditor)
	readRoles   = roles(enums.RoleOwner, enums.RoleViewer)
	ownerOnly   = roles(enums.RoleOwner)
	signupRoles = roles(enums.RoleCustomer, enums.RoleGuest)
)

var table = map[Operation]map[enums.Role]struct{}{
	CarCreate: ownerOnly,
	CarList:   browseRoles,
	CarView:   browseRoles,
	CarSearch: browseRoles,
	CarPrice:  browseRoles,
	CarUpdate: editRoles,
	CarDelete: ownerOnly,

	CustomerCreate: signupRoles,
	CustomerList:   readRoles,
	CustomerView:   readRoles,
	CustomerUpdate: editRoles,
	CustomerDelete: ownerOnly,

	ContractCreate: signupRoles,
	ContractCancel: roles(enums.RoleOwner, enums.RoleCustomer, enums.RoleGuest),
	ContractUpdate: editRoles,
	ContractList:   readRoles,
	ContractView:   readRoles,

	PaymentCreate: roles(enums.RoleCustomer),
	PaymentList:   readRoles,
	PaymentView:   readRoles,
	PaymentUpdate: editRoles,
	PaymentDelete: ownerOnly,
}

// Allowed reports whether role may perform op. Unknown roles and operations are denied.
func Allowed(role enums.Role, op Operation) bool {
	allowed, ok := table[op]
	if !ok {
		return false
	}
	_, ok = allowed[role]
	return ok
}

// Check returns a FORBIDDEN error when role may not perform op.
func Check(role enums.Role, op Operation) error {
	if Allowed(role, op) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("role %q may not perform %s", role, op))
}

// Principal is the authenticated (or anonymous) caller.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
	// SessionID is the access token jti; empty for guests.
	SessionID string
}

// Guest is the principal of a request without credentials.
func Guest() Principal {
	return Principal{Role: enums.RoleGuest}
}

// IsGuest reports whether the principal is anonymous.
func (p Principal) IsGuest() bool {
	return p.UserID == uuid.Nil
}
