package rbac

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleUser: {
		"attempt:take",
		"attempt:submit",
		"scores:view-own",
	},
	RoleAdmin: {
		"*",
	},
}
