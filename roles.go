package accounts

// RoleRank maps a role to its privilege level, ROOT > ADMIN > USER.
// Unknown roles rank below every valid role.
func RoleRank(r UserRole) int {
	switch r {
	case RoleRoot:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleRoot, RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// IsAdminTier reports whether the role carries administrative privileges
func IsAdminTier(r UserRole) bool {
	return r == RoleRoot || r == RoleAdmin
}

// RoleAtLeast checks if the role meets the minimum required level
func RoleAtLeast(r, min UserRole) bool {
	if !IsValidRole(r) || !IsValidRole(min) {
		return false
	}
	return RoleRank(r) >= RoleRank(min)
}

// CanSeeEmails reports whether the role may read other users' email addresses
func CanSeeEmails(r UserRole) bool {
	return IsAdminTier(r)
}

// CanSeeTimestamps reports whether the role may read record timestamps
func CanSeeTimestamps(r UserRole) bool {
	return IsAdminTier(r)
}

// CanSeeAccountFlags reports whether the role may read active/canInvite flags
func CanSeeAccountFlags(r UserRole) bool {
	return IsAdminTier(r)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleAdmin,
		RoleRoot,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
