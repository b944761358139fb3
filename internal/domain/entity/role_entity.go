package entity

// Role represents an authorization role.
// The store assigns the default; the application never picks one.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) String() string { return string(r) }
