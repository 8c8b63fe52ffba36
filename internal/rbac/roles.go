package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner       = "owner"
	RoleAnalyst     = "analyst"
	RoleDataManager = "data_manager" // may import targets, cannot read call data
	RoleSuperAdmin  = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
