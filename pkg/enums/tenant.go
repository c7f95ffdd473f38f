package enums

import "fmt"

// TenantType identifies the organisation kind behind a tenant.
type TenantType string

const (
	TenantTypePharmacy  TenantType = "pharmacy"
	TenantTypeSupplier  TenantType = "supplier"
	TenantTypeLogistics TenantType = "logistics"
	TenantTypeRegulator TenantType = "regulator"
)

var validTenantTypes = []TenantType{
	TenantTypePharmacy,
	TenantTypeSupplier,
	TenantTypeLogistics,
	TenantTypeRegulator,
}

// String implements fmt.Stringer.
func (t TenantType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TenantType.
func (t TenantType) IsValid() bool {
	for _, candidate := range validTenantTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTenantType converts raw input into a TenantType.
func ParseTenantType(value string) (TenantType, error) {
	for _, candidate := range validTenantTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tenant type %q", value)
}

// UserRole is the platform role carried by an access token.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleStaff   UserRole = "staff"
	UserRoleDriver  UserRole = "driver"
	UserRoleAuditor UserRole = "auditor"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRoleStaff,
	UserRoleDriver,
	UserRoleAuditor,
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}
