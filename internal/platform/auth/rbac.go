package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ErrPermissionDenied is returned by the Require* helpers when the user's
// role does not grant the requested permission.
var ErrPermissionDenied = errors.New("permission denied")

// Role is a pharmacy staff role. Permissions are namespaced
// "resource:operation" strings; the admin role carries the wildcard.
type Role string

const (
	RoleCashier    Role = "cashier"
	RolePharmacist Role = "pharmacist"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Wildcard grants every permission.
const Wildcard = "*"

var rolePermissions = map[Role][]string{
	RoleCashier: {
		"pos:read", "pos:create", "pos:process",
		"inventory:read",
		"products:read",
	},
	RolePharmacist: {
		"pos:read", "pos:create", "pos:process",
		"inventory:read", "inventory:update",
		"products:read",
		"patients:read", "patients:create",
		"clinical:read", "clinical:create",
		"reports:read",
	},
	RoleManager: {
		"pos:read", "pos:create", "pos:process", "pos:cancel",
		"inventory:read", "inventory:update", "inventory:delete",
		"products:read", "products:create", "products:update",
		"patients:read", "patients:create", "patients:update",
		"clinical:read", "clinical:create", "clinical:update",
		"suppliers:read", "suppliers:create", "suppliers:update",
		"reports:read", "reports:create",
		"users:read",
		"settings:read", "settings:update",
	},
	RoleSupervisor: {
		"pos:read", "pos:create", "pos:process", "pos:cancel", "pos:refund",
		"inventory:read", "inventory:update", "inventory:delete",
		"products:read", "products:create", "products:update", "products:delete",
		"patients:read", "patients:create", "patients:update", "patients:delete",
		"clinical:read", "clinical:create", "clinical:update", "clinical:delete",
		"suppliers:read", "suppliers:create", "suppliers:update", "suppliers:delete",
		"reports:read", "reports:create", "reports:delete",
		"users:read", "users:create", "users:update", "users:delete",
		"settings:read", "settings:update", "settings:delete",
		"audit:read",
	},
	RoleAdmin: {Wildcard},
}

// User is the authenticated identity the permission checks run against.
type User struct {
	ID   string
	Name string
	Role Role
}

// PermissionsForRole returns the permission list for role. Unknown roles
// have no permissions.
func PermissionsForRole(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the user's role grants permission. Admin
// and the wildcard entry grant everything.
func HasPermission(u User, permission string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[u.Role] {
		if p == Wildcard || p == permission {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the user holds at least one of permissions.
func HasAnyPermission(u User, permissions ...string) bool {
	for _, p := range permissions {
		if HasPermission(u, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the user holds every one of permissions.
func HasAllPermissions(u User, permissions ...string) bool {
	for _, p := range permissions {
		if !HasPermission(u, p) {
			return false
		}
	}
	return true
}

// RequirePermission returns an ErrPermissionDenied-wrapped error unless the
// user holds permission.
func RequirePermission(u User, permission string) error {
	if !HasPermission(u, permission) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, permission)
	}
	return nil
}

// RequireAnyPermission returns an ErrPermissionDenied-wrapped error unless
// the user holds at least one of permissions.
func RequireAnyPermission(u User, permissions ...string) error {
	if !HasAnyPermission(u, permissions...) {
		return fmt.Errorf("%w: requires one of %s", ErrPermissionDenied, strings.Join(permissions, ", "))
	}
	return nil
}

// CanCancelInvoice reports whether the user may cancel a POS invoice.
func CanCancelInvoice(u User) bool { return HasPermission(u, "pos:cancel") }

// CanRefundInvoice reports whether the user may refund a POS invoice.
func CanRefundInvoice(u User) bool { return HasPermission(u, "pos:refund") }

// CanViewAuditLogs reports whether the user may read the audit trail.
func CanViewAuditLogs(u User) bool { return HasPermission(u, "audit:read") }

// Require returns middleware that rejects the request with 403 unless the
// authenticated user holds permission.
func Require(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := UserFromContext(c.Request().Context())
			if err := RequirePermission(u, permission); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}
			return next(c)
		}
	}
}
