package identity

// Role is the capability level of an authenticated caller.
type Role string

const (
	RoleDonor Role = "donor"
	RoleAdmin Role = "admin"
)

// Identity is the resolved caller, threaded explicitly through every
// service call. There is no ambient "current user"; handlers extract it
// from the request and pass it down.
type Identity struct {
	DonorID int64
	Role    Role
}

// CanPay reports whether the caller may create and verify payments.
func (i Identity) CanPay() bool {
	return i.Role == RoleDonor && i.DonorID > 0
}

// IsAdmin reports whether the caller may read every payment.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
