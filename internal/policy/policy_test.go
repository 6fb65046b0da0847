package policy

import (
	"testing"

	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedTable(t *testing.T) {
	owner, customer, viewer, editor, guest := enums.RoleOwner, enums.RoleCustomer, enums.RoleViewer, enums.RoleEditor, enums.RoleGuest

	cases := []struct {
		op      Operation
		allowed []enums.Role
	}{
		{CarCreate, []enums.Role{owner}},
		{CarList, []enums.Role{owner, customer, viewer, guest}},
		{CarView, []enums.Role{owner, customer, viewer, guest}},
		{CarSearch, []enums.Role{owner, customer, viewer, guest}},
		{CarPrice, []enums.Role{owner, customer, viewer, guest}},
		{CarUpdate, []enums.Role{owner, editor}},
		{CarDelete, []enums.Role{owner}},
		{CustomerCreate, []enums.Role{customer, guest}},
		{CustomerList, []enums.Role{owner, viewer}},
		{CustomerView, []enums.Role{owner, viewer}},
		{CustomerUpdate, []enums.Role{owner, editor}},
		{CustomerDelete, []enums.Role{owner}},
		{ContractCreate, []enums.Role{customer, guest}},
		{ContractCancel, []enums.Role{owner, customer, guest}},
		{ContractUpdate, []enums.Role{owner, editor}},
		{ContractList, []enums.Role{owner, viewer}},
		{ContractView, []enums.Role{owner, viewer}},
		{PaymentCreate, []enums.Role{customer}},
		{PaymentList, []enums.Role{owner, viewer}},
		{PaymentView, []enums.Role{owner, viewer}},
		{PaymentUpdate, []enums.Role{owner, editor}},
		{PaymentDelete, []enums.Role{owner}},
	}

	all := []enums.Role{owner, customer, viewer, editor, guest}
	for _, tc := range cases {
		for _, role := range all {
			want := false
			for _, r := range tc.allowed {
				if r == role {
					want = true
				}
			}
			assert.Equal(t, want, Allowed(role, tc.op), "%s on %s", role, tc.op)
		}
	}
	assert.Len(t, table, len(cases), "every operation in the table is covered")
}

func TestAllowedDeniesUnknown(t *testing.T) {
	assert.False(t, Allowed("admin", CarList))
	assert.False(t, Allowed(enums.RoleOwner, Operation("car.teleport")))
	assert.False(t, Allowed("", CarList))
}

func TestCheckReturnsForbidden(t *testing.T) {
	require.NoError(t, Check(enums.RoleCustomer, ContractCreate))

	err := Check(enums.RoleViewer, ContractCreate)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestGuestPrincipal(t *testing.T) {
	g := Guest()
	assert.True(t, g.IsGuest())
	assert.Equal(t, enums.RoleGuest, g.Role)
}
