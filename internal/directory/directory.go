// Package directory resolves the people a memo can be routed to.
package directory

import (
	"context"
)

// Role is a directory account's function in the workflow.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSecretary Role = "secretary"
	RoleFaculty   Role = "faculty"
)

// User is a directory account.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Active     bool   `json:"active"`
}

// IsDeliverable reports whether u may receive memo deliveries.
func (u User) IsDeliverable() bool {
	return u.Active && u.Role == RoleFaculty
}

// Directory looks up accounts. Results preserve the caller's order where one is given
// and silently omit unknown ids.
type Directory interface {
	FindByIDs(ctx context.Context, ids []string) ([]User, error)
	ActiveFacultyByDepartments(ctx context.Context, departments []string) ([]User, error)
	ActiveAdmins(ctx context.Context) ([]User, error)
}
