package accounts

// Role is a coarse account role assigned by the Identity Provider. Roles are
// the only authorization state stored per account; everything finer grained
// is derived through the static role to permission table below.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAuditor Role = "auditor"
	RoleUser    Role = "user"
)

// Permission is an enumerated capability identifier gating one route or
// action. The set is closed: tokens may only carry permissions from this
// enumeration.
type Permission string

const (
	PermissionAccountRead       Permission = "account_read"
	PermissionAccountCreate     Permission = "account_create"
	PermissionAccountUpdate     Permission = "account_update"
	PermissionAccountDelete     Permission = "account_delete"
	PermissionAccountMeRead     Permission = "account_me_read"
	PermissionAccountMeUpdate   Permission = "account_me_update"
	PermissionAccessTokenRead   Permission = "access_token_read"
	PermissionAccessTokenCreate Permission = "access_token_create"
	PermissionAccessTokenDelete Permission = "access_token_delete"
)

// AllPermissions lists every permission in the closed set.
var AllPermissions = []Permission{
	PermissionAccountRead,
	PermissionAccountCreate,
	PermissionAccountUpdate,
	PermissionAccountDelete,
	PermissionAccountMeRead,
	PermissionAccountMeUpdate,
	PermissionAccessTokenRead,
	PermissionAccessTokenCreate,
	PermissionAccessTokenDelete,
}

// rolePermissions is the static role to permission mapping. It is
// configuration, not data: changing it requires a release, which is the
// intended review gate for privilege changes.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionAccountRead,
		PermissionAccountCreate,
		PermissionAccountUpdate,
		PermissionAccountDelete,
		PermissionAccountMeRead,
		PermissionAccountMeUpdate,
		PermissionAccessTokenRead,
		PermissionAccessTokenCreate,
		PermissionAccessTokenDelete,
	},
	RoleAuditor: {
		PermissionAccountRead,
		PermissionAccountMeRead,
		PermissionAccessTokenRead,
	},
	RoleUser: {
		PermissionAccountMeRead,
		PermissionAccountMeUpdate,
		PermissionAccessTokenRead,
		PermissionAccessTokenCreate,
		PermissionAccessTokenDelete,
	},
}

// ParseRole maps a role name to a Role, reporting whether the name is part
// of the enumeration. Unknown names coming from IdP group claims are
// silently dropped by callers.
func ParseRole(name string) (Role, bool) {
	switch Role(name) {
	case RoleAdmin, RoleAuditor, RoleUser:
		return Role(name), true
	}
	return "", false
}

// ParseRoles maps a list of role names onto the Role enumeration, dropping
// names that are not part of it.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		if role, ok := ParseRole(name); ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// ParsePermission maps a scope name onto the Permission enumeration.
func ParsePermission(name string) (Permission, bool) {
	for _, p := range AllPermissions {
		if Permission(name) == p {
			return p, true
		}
	}
	return "", false
}

// ParsePermissions maps scope names onto the Permission enumeration,
// dropping unknown names.
func ParsePermissions(names []string) []Permission {
	perms := make([]Permission, 0, len(names))
	for _, name := range names {
		if p, ok := ParsePermission(name); ok {
			perms = append(perms, p)
		}
	}
	return perms
}

// ScopesForRoles expands a role list into its combined permission set,
// deduplicated and ordered by the permission enumeration.
func ScopesForRoles(roles []Role) []Permission {
	granted := make(map[Permission]struct{})
	for _, role := range roles {
		for _, p := range rolePermissions[role] {
			granted[p] = struct{}{}
		}
	}

	scopes := make([]Permission, 0, len(granted))
	for _, p := range AllPermissions {
		if _, ok := granted[p]; ok {
			scopes = append(scopes, p)
		}
	}
	return scopes
}

// PermissionsSubset reports whether every permission in sub is contained in
// super. Used to clamp user-requested api token scopes to what the owning
// account is itself permitted.
func PermissionsSubset(sub, super []Permission) bool {
	allowed := make(map[Permission]struct{}, len(super))
	for _, p := range super {
		allowed[p] = struct{}{}
	}
	for _, p := range sub {
		if _, ok := allowed[p]; !ok {
			return false
		}
	}
	return true
}
