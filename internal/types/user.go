package types

// User is a directory entry for a principal.
type User struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the user holds elevated authorization.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
