package users_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/stretchr/testify/require"
)

func TestPrincipalDecodesServerUser(t *testing.T) {
	var p users.Principal
	err := json.Unmarshal([]byte(`{"id":42,"fullName":"Nguyen Van A","email":"a@x.com","roles":["Operator","Admin"],"branchId":3,"branchName":"Ha Noi"}`), &p)
	require.NoError(t, err)

	require.Equal(t, "42", p.ID)
	require.Equal(t, "Nguyen Van A", p.DisplayName)
	require.True(t, p.HasRole(users.RoleOperator))
	require.False(t, p.HasRole(users.RoleExecutiveManagement))
	require.True(t, p.HasAnyRole(users.RoleExecutiveManagement, users.RoleAdmin))
	require.Equal(t, int64(3), utils.Value(p.BranchID))
	require.Equal(t, "Ha Noi", p.Branch())
	require.Equal(t, "Admin, Operator", p.Roles.String())
}

func TestPrincipalDisplayNameFallback(t *testing.T) {
	var p users.Principal
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u-1","email":"b@x.com"}`), &p))
	require.Equal(t, "u-1", p.ID)
	require.Equal(t, "b@x.com", p.DisplayName)
	require.NotNil(t, p.Roles)
	require.Equal(t, "-", p.Branch())
}

func TestNilPrincipalHasNoRoles(t *testing.T) {
	var p *users.Principal
	require.False(t, p.HasRole(users.RoleAdmin))
	require.False(t, p.HasAnyRole(users.RoleAdmin))
}

func TestCloneSharesNothing(t *testing.T) {
	p := &users.Principal{ID: "1", Roles: users.NewRoleSet(string(users.RoleOperator)), BranchID: utils.Ptr(int64(2))}
	c := p.Clone()
	require.Equal(t, p, c)

	c.Roles[string(users.RoleAdmin)] = struct{}{}
	*c.BranchID = 9
	require.False(t, p.HasRole(users.RoleAdmin))
	require.Equal(t, int64(2), *p.BranchID)

	var none *users.Principal
	require.Nil(t, none.Clone())
}

func TestNewAccountValidate(t *testing.T) {
	valid := users.NewAccount{Name: "Tran B", Email: "b@x.com", Password: "secret1", Role: "Operator"}
	require.NoError(t, valid.Validate())

	short := valid
	short.Password = "12345"
	require.Error(t, short.Validate())

	badRole := valid
	badRole.Role = users.RoleAdmin
	require.Error(t, badRole.Validate())

	badEmail := valid
	badEmail.Email = "nope"
	require.Error(t, badEmail.Validate())
}
