package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"familiarity:submit",
		"familiarity:view-own",
	},
	"teacher": {
		"familiarity:submit",
		"familiarity:view-own",
		"familiarity:view-all",
	},
	"admin": {
		"*", // everything
	},
}
