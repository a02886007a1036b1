package domain

// Role enumerates caller tiers.
type Role string

const (
	RoleEndUser          Role = "END_USER"
	RoleAgent            Role = "AGENT"
	RolePlatformOperator Role = "PLATFORM_OPERATOR"
)

// AccessContext is the resolved tenant-access context for a request.
type AccessContext struct {
	UserID     string
	Role       Role
	CustomerID string
}

// CanView reports whether the caller may read data belonging to customerID.
func (a AccessContext) CanView(customerID string) bool {
	if a.Role == RolePlatformOperator {
		return true
	}
	return a.CustomerID == customerID
}

// CanManage reports whether the caller holds the manage capability for
// customerID: an operator-tier role within the tenant, or platform operator.
func (a AccessContext) CanManage(customerID string) bool {
	if a.Role == RolePlatformOperator {
		return true
	}
	return a.Role == RoleAgent && a.CustomerID == customerID
}
