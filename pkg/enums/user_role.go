package enums

// UserRole maps to user_role_enum and is carried in the JWT role claim.
type UserRole string

const (
	UserRoleClient     UserRole = "client"
	UserRoleFreelancer UserRole = "freelancer"
	UserRoleAdmin      UserRole = "admin"
)

var userRoles = []UserRole{UserRoleClient, UserRoleFreelancer, UserRoleAdmin}

func (r UserRole) IsValid() bool { return member(userRoles, r) }

// ParseUserRole is strict: role claims are minted by the identity service.
func ParseUserRole(value string) (UserRole, error) {
	return parseStrict(userRoles, "user role", value)
}
