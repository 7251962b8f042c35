package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilityMatrix(t *testing.T) {
	tests := []struct {
		role Role
		cap  string
		want bool
	}{
		// Support is read-only on players and reports.
		{RoleSupport, CapPlayersRead, true},
		{RoleSupport, CapReportsRead, true},
		{RoleSupport, CapPlayersLifecycle, false},
		{RoleSupport, CapPlayersWallet, false},
		{RoleSupport, CapFinanceReview, false},
		{RoleSupport, CapFinancePayout, false},
		{RoleSupport, CapAuditRead, false},

		// Ops gets lifecycle and finance but no money adjustments.
		{RoleOps, CapPlayersRead, true},
		{RoleOps, CapPlayersLifecycle, true},
		{RoleOps, CapPlayersWallet, false},
		{RoleOps, CapFinanceReview, true},
		{RoleOps, CapFinancePayout, true},
		{RoleOps, CapAuditRead, true},
		{RoleOps, CapBonusManage, false},
		{RoleOps, CapFlagsManage, false},

		// Admin gets everything except platform management.
		{RoleAdmin, CapPlayersWallet, true},
		{RoleAdmin, CapFinancePayout, true},
		{RoleAdmin, CapKYCReview, true},
		{RoleAdmin, CapGamesManage, true},
		{RoleAdmin, CapFlagsManage, false},
		{RoleAdmin, CapTenantsManage, false},
		{RoleAdmin, CapAdminsManage, false},

		// Tenant admin mirrors admin within its tenant.
		{RoleTenantAdmin, CapPlayersWallet, true},
		{RoleTenantAdmin, CapTenantsManage, false},

		// Super admin holds every capability.
		{RoleSuperAdmin, CapFlagsManage, true},
		{RoleSuperAdmin, CapTenantsManage, true},
		{RoleSuperAdmin, CapAdminsManage, true},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, HasCapability(tc.role, tc.cap),
			"%s / %s", tc.role, tc.cap)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RoleSuperAdmin, RoleAdmin, RoleOps, RoleSupport, RoleTenantAdmin} {
		assert.True(t, ValidRole(r), string(r))
	}
	assert.False(t, ValidRole(Role("viewer")))
	assert.False(t, ValidRole(Role("")))
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner(RoleSuperAdmin))
	assert.False(t, IsOwner(RoleAdmin))
	assert.False(t, IsOwner(RoleTenantAdmin))
}

func TestCapabilities_CopiesMap(t *testing.T) {
	caps := Capabilities(RoleSupport)
	caps[CapFinancePayout] = true

	// Mutating the returned map must not poison the role table.
	assert.False(t, HasCapability(RoleSupport, CapFinancePayout))
}

func TestHasCapability_UnknownRole(t *testing.T) {
	assert.False(t, HasCapability(Role("ghost"), CapPlayersRead))
}
