package rbac

// Role names. Keep these stable; they are part of auth contracts and are
// embedded in issued access tokens.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsValid(role string) bool { return role == RoleAdmin || role == RoleUser }
