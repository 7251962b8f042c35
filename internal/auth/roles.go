package auth

// Role is an admin role name.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleOps         Role = "ops"
	RoleSupport     Role = "support"
	RoleTenantAdmin Role = "tenant_admin"
)

// Capability names checked on admin routes.
const (
	CapPlayersRead      = "players.read"
	CapPlayersLifecycle = "players.lifecycle" // suspend / unsuspend / force-logout
	CapPlayersWallet    = "players.wallet"    // credit / debit / bonus grant
	CapFinanceReview    = "finance.review"
	CapFinancePayout    = "finance.payout"
	CapKYCReview        = "kyc.review"
	CapBonusManage      = "bonus.manage"
	CapCRMManage        = "crm.manage"
	CapAffiliatesManage = "affiliates.manage"
	CapFlagsManage      = "flags.manage"
	CapTenantsManage    = "tenants.manage"
	CapAuditRead        = "audit.read"
	CapRGManage         = "rg.manage"
	CapGamesManage      = "games.manage"
	CapReportsRead      = "reports.read"
	CapAdminsManage     = "admins.manage"
)

// roleCaps is the capability table. The console's RBAC assertions depend
// on it: support sees no money or lifecycle actions, ops gets lifecycle
// but no money actions, admin and super_admin get everything.
var roleCaps = map[Role]map[string]bool{
	RoleSuperAdmin: allCaps(),
	RoleAdmin: {
		CapPlayersRead: true, CapPlayersLifecycle: true, CapPlayersWallet: true,
		CapFinanceReview: true, CapFinancePayout: true,
		CapKYCReview: true, CapBonusManage: true, CapCRMManage: true,
		CapAffiliatesManage: true, CapAuditRead: true, CapRGManage: true,
		CapGamesManage: true, CapReportsRead: true,
	},
	RoleOps: {
		CapPlayersRead: true, CapPlayersLifecycle: true,
		CapFinanceReview: true, CapFinancePayout: true,
		CapAuditRead: true, CapReportsRead: true,
	},
	RoleSupport: {
		CapPlayersRead: true, CapReportsRead: true,
	},
	RoleTenantAdmin: {
		CapPlayersRead: true, CapPlayersLifecycle: true, CapPlayersWallet: true,
		CapFinanceReview: true, CapFinancePayout: true,
		CapKYCReview: true, CapBonusManage: true, CapCRMManage: true,
		CapAffiliatesManage: true, CapAuditRead: true, CapRGManage: true,
		CapGamesManage: true, CapReportsRead: true,
	},
}

func allCaps() map[string]bool {
	return map[string]bool{
		CapPlayersRead: true, CapPlayersLifecycle: true, CapPlayersWallet: true,
		CapFinanceReview: true, CapFinancePayout: true,
		CapKYCReview: true, CapBonusManage: true, CapCRMManage: true,
		CapAffiliatesManage: true, CapFlagsManage: true, CapTenantsManage: true,
		CapAuditRead: true, CapRGManage: true, CapGamesManage: true,
		CapReportsRead: true, CapAdminsManage: true,
	}
}

// ValidRole reports whether the role name is recognised.
func ValidRole(r Role) bool {
	_, ok := roleCaps[r]
	return ok
}

// HasCapability reports whether a role grants a capability.
func HasCapability(r Role, cap string) bool {
	caps, ok := roleCaps[r]
	if !ok {
		return false
	}
	return caps[cap]
}

// Capabilities returns the full capability map for a role. The console
// uses this to decide which modules and buttons to render.
func Capabilities(r Role) map[string]bool {
	caps, ok := roleCaps[r]
	if !ok {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(caps))
	for k, v := range caps {
		out[k] = v
	}
	return out
}

// IsOwner reports whether the role is the platform owner role.
func IsOwner(r Role) bool {
	return r == RoleSuperAdmin
}
